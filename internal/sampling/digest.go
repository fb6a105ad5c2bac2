package sampling

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/chatscopehq/chatscope/internal/chat"
	"github.com/chatscopehq/chatscope/internal/metrics"
	"github.com/chatscopehq/chatscope/internal/percentile"
)

// trendBand is the normalized-slope dead band for per-series direction
// words in the digest.
const trendBand = 0.15

// renderDigest produces the deterministic textual summary of the
// quantitative analysis handed to the AI stages as context. Participants
// are ordered by message volume descending, names ascending on ties.
func renderDigest(conv chat.ParsedConversation, qa metrics.QuantitativeAnalysis) string {
	var sb strings.Builder

	start := time.UnixMilli(conv.Metadata.DateRange.Start).UTC().Format("2006-01-02")
	end := time.UnixMilli(conv.Metadata.DateRange.End).UTC().Format("2006-01-02")
	fmt.Fprintf(&sb, "Conversation on %s, %s to %s (%d days, %d messages).\n",
		conv.Platform, start, end, conv.Metadata.DurationDays, conv.Metadata.TotalMessages)

	names := digestOrder(qa)

	sb.WriteString("Message ratio:")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " %s %.0f%%", name, qa.Engagement.MessageRatio[name]*100)
	}
	sb.WriteString(".\n")

	responseTrend := directionWord(trendValues(qa.Trends.ResponseTime))
	for _, name := range names {
		rt := qa.Timing.ResponseTimes[name]
		fmt.Fprintf(&sb, "%s: median response %.1f min (p90 %.1f, trimmed mean %.1f), response times %s.\n",
			name, rt.Median, rt.P90, rt.TrimmedMean, responseTrend)
	}

	sb.WriteString("Initiations:")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " %s %d", name, qa.Timing.Initiations[name])
	}
	sb.WriteString(".\n")

	sb.WriteString("Double-texting:")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " %s %d", name, qa.Engagement.DoubleTexts[name])
	}
	sb.WriteString(".\n")

	sb.WriteString("Reactions received:")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " %s %d", name, qa.Engagement.ReactionsReceived[name])
	}
	sb.WriteString(".\n")

	sb.WriteString("Questions asked:")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " %s %d", name, qa.PerPerson[name].QuestionsAsked)
	}
	sb.WriteString(".\n")

	for _, name := range names {
		p := qa.PerPerson[name]
		values := map[string]float64{
			"response_time":    qa.Timing.ResponseTimes[name].Median,
			"messages_per_day": p.MessagesPerDay,
		}
		if p.MessageCount > 0 {
			values["reactions_per_message"] = float64(qa.Engagement.ReactionsReceived[name]) / float64(p.MessageCount)
		}
		ranks := percentile.LookupAll(values)
		if len(ranks) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "Population rank for %s:", name)
		for i, r := range ranks {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " %s %s", r.Metric, r.Label)
		}
		sb.WriteString(".\n")
	}

	fmt.Fprintf(&sb, "Overall volume trend: %s (slope %.2f).\n",
		qa.Patterns.TrendDirection, qa.Patterns.TrendSlope)
	fmt.Fprintf(&sb, "Sessions: %d, average length %.1f messages.\n",
		qa.Engagement.SessionCount, qa.Engagement.AvgSessionLength)

	if qa.Timing.LongestSilence.DurationHours > 0 {
		fmt.Fprintf(&sb, "Longest silence: %.1f hours, last message by %s, broken by %s.\n",
			qa.Timing.LongestSilence.DurationHours,
			qa.Timing.LongestSilence.LastSender,
			qa.Timing.LongestSilence.BrokenBy)
	}

	return sb.String()
}

// digestOrder sorts participant names by message count descending, then
// name ascending, so the digest never depends on map iteration order.
func digestOrder(qa metrics.QuantitativeAnalysis) []string {
	names := make([]string, 0, len(qa.PerPerson))
	for name := range qa.PerPerson {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := qa.PerPerson[names[i]].MessageCount, qa.PerPerson[names[j]].MessageCount
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names
}

func trendValues(points []metrics.TrendPoint) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Value)
	}
	return values
}

// directionWord fits a least-squares slope over the series, normalizes by
// its mean, and applies the dead band: raw sign alone never decides.
func directionWord(values []float64) string {
	if len(values) < 2 {
		return "stable"
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	n := float64(len(values))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return "stable"
	}
	slope := (n*sumXY - sumX*sumY) / denom
	if avg := sumY / n; avg != 0 {
		slope /= math.Abs(avg)
	}
	switch {
	case math.Abs(slope) < trendBand:
		return "stable"
	case slope > 0:
		return "increasing"
	default:
		return "decreasing"
	}
}
