package metrics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/chatscopehq/chatscope/internal/chat"
)

// Config tunes the behavioral thresholds. Defaults match the analysis the
// rest of the pipeline expects; tests override individual fields.
type Config struct {
	// SilenceThresholdMin is the gap (minutes) that ends a session and
	// disqualifies a response-time sample.
	SilenceThresholdMin int

	// LateNightStartHour..LateNightEndHour (exclusive) is the late-night
	// window, wrapping past midnight.
	LateNightStartHour int
	LateNightEndHour   int

	// TrimFraction is the per-tail fraction discarded by the trimmed mean.
	TrimFraction float64

	// DoubleTextGapMin is the minimum gap (minutes) between two consecutive
	// same-sender messages for the second to count as a double-text rather
	// than continued typing.
	DoubleTextGapMin int

	// Burst detection: a run of at least BurstMinMessages messages with
	// consecutive gaps of at most BurstMaxGapMin minutes.
	BurstMaxGapMin   int
	BurstMinMessages int

	// TrendStableBand is the normalized-slope magnitude below which the
	// volume trend reads "stable".
	TrendStableBand float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SilenceThresholdMin: 180,
		LateNightStartHour:  22,
		LateNightEndHour:    6,
		TrimFraction:        0.1,
		DoubleTextGapMin:    10,
		BurstMaxGapMin:      5,
		BurstMinMessages:    10,
		TrendStableBand:     0.15,
	}
}

// Compute produces the full quantitative analysis with default thresholds.
func Compute(conv chat.ParsedConversation) QuantitativeAnalysis {
	return ComputeWithConfig(conv, DefaultConfig())
}

// ComputeWithConfig runs every analyzer over the conversation. Messages of
// type system/call and unsent messages are excluded from all denominators
// but remain in the canonical list upstream.
func ComputeWithConfig(conv chat.ParsedConversation, cfg Config) QuantitativeAnalysis {
	msgs := countableMessages(conv.Messages)
	names := participantNames(conv, msgs)
	sessions := splitSessions(msgs, cfg)

	return QuantitativeAnalysis{
		PerPerson:  analyzePerPerson(msgs, names, conv.Metadata.DurationDays),
		Timing:     analyzeTiming(msgs, names, sessions, cfg),
		Engagement: analyzeEngagement(msgs, names, sessions, cfg),
		Patterns:   analyzePatterns(msgs, cfg),
		Heatmap:    analyzeHeatmap(msgs, names),
		Trends:     analyzeTrends(msgs, names, sessions, cfg),
	}
}

// countable reports whether a message participates in metric denominators.
func countable(m chat.UnifiedMessage) bool {
	if m.IsUnsent {
		return false
	}
	return m.Type != chat.TypeSystem && m.Type != chat.TypeCall
}

func countableMessages(msgs []chat.UnifiedMessage) []chat.UnifiedMessage {
	out := make([]chat.UnifiedMessage, 0, len(msgs))
	for _, m := range msgs {
		if countable(m) {
			out = append(out, m)
		}
	}
	return out
}

// participantNames returns the deterministic person ordering: declared
// participants first, then any extra senders in first-seen order.
func participantNames(conv chat.ParsedConversation, msgs []chat.UnifiedMessage) []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range conv.Participants {
		if p.Name != "" && !seen[p.Name] {
			names = append(names, p.Name)
			seen[p.Name] = true
		}
	}
	for _, m := range msgs {
		if m.Sender != "" && !seen[m.Sender] {
			names = append(names, m.Sender)
			seen[m.Sender] = true
		}
	}
	return names
}

// splitSessions cuts the message list at every silence-threshold gap.
func splitSessions(msgs []chat.UnifiedMessage, cfg Config) [][]chat.UnifiedMessage {
	if len(msgs) == 0 {
		return nil
	}
	threshold := int64(cfg.SilenceThresholdMin) * 60 * 1000
	var sessions [][]chat.UnifiedMessage
	start := 0
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp-msgs[i-1].Timestamp > threshold {
			sessions = append(sessions, msgs[start:i])
			start = i
		}
	}
	sessions = append(sessions, msgs[start:])
	return sessions
}

func analyzePerPerson(msgs []chat.UnifiedMessage, names []string, durationDays int) map[string]PersonStats {
	stats := make(map[string]PersonStats, len(names))
	for _, name := range names {
		stats[name] = PersonStats{}
	}
	for _, m := range msgs {
		s := stats[m.Sender]
		s.MessageCount++
		s.CharCount += len([]rune(m.Content))
		words := len(strings.Fields(m.Content))
		s.WordCount += words
		if l := len([]rune(m.Content)); l > s.LongestMessage {
			s.LongestMessage = l
		}
		if strings.Contains(m.Content, "?") {
			s.QuestionsAsked++
		}
		if m.HasMedia {
			s.MediaCount++
		}
		if m.HasLink {
			s.LinkCount++
		}
		if m.Type == chat.TypeSticker {
			s.StickerCount++
		}
		stats[m.Sender] = s
	}
	for name, s := range stats {
		if s.MessageCount > 0 {
			s.AvgMessageLength = float64(s.CharCount) / float64(s.MessageCount)
			s.AvgWordsPerMsg = float64(s.WordCount) / float64(s.MessageCount)
		}
		if durationDays > 0 {
			s.MessagesPerDay = float64(s.MessageCount) / float64(durationDays)
		}
		stats[name] = s
	}
	return stats
}

// responseSamples collects per-person response times in minutes: the gap
// between an incoming message and the person's next message, restricted to
// gaps under the silence threshold (longer gaps are new conversations, not
// responses).
func responseSamples(msgs []chat.UnifiedMessage, cfg Config) map[string][]float64 {
	samples := make(map[string][]float64)
	threshold := float64(cfg.SilenceThresholdMin)
	for i := 1; i < len(msgs); i++ {
		prev, cur := msgs[i-1], msgs[i]
		if cur.Sender == prev.Sender {
			continue
		}
		gapMin := float64(cur.Timestamp-prev.Timestamp) / 60000
		if gapMin < 0 || gapMin > threshold {
			continue
		}
		samples[cur.Sender] = append(samples[cur.Sender], gapMin)
	}
	return samples
}

func analyzeTiming(msgs []chat.UnifiedMessage, names []string, sessions [][]chat.UnifiedMessage, cfg Config) TimingStats {
	timing := TimingStats{
		ResponseTimes: make(map[string]ResponseTimeStats, len(names)),
		Initiations:   make(map[string]int, len(names)),
		Endings:       make(map[string]int, len(names)),
		LateNight:     make(map[string]int, len(names)),
	}

	samples := responseSamples(msgs, cfg)
	for _, name := range names {
		timing.ResponseTimes[name] = summarize(samples[name], cfg.TrimFraction)
		timing.Initiations[name] = 0
		timing.Endings[name] = 0
		timing.LateNight[name] = 0
	}

	for _, session := range sessions {
		timing.Initiations[session[0].Sender]++
		timing.Endings[session[len(session)-1].Sender]++
	}

	for _, m := range msgs {
		hour := time.UnixMilli(m.Timestamp).UTC().Hour()
		if isLateNight(hour, cfg) {
			timing.LateNight[m.Sender]++
		}
	}

	timing.LongestSilence = longestSilence(msgs)
	return timing
}

func isLateNight(hour int, cfg Config) bool {
	start, end := cfg.LateNightStartHour, cfg.LateNightEndHour
	if start <= end {
		return hour >= start && hour < end
	}
	// Window wraps past midnight.
	return hour >= start || hour < end
}

func longestSilence(msgs []chat.UnifiedMessage) Silence {
	var longest Silence
	var longestGap int64 = -1
	for i := 1; i < len(msgs); i++ {
		gap := msgs[i].Timestamp - msgs[i-1].Timestamp
		if gap > longestGap {
			longestGap = gap
			longest = Silence{
				Start:         msgs[i-1].Timestamp,
				End:           msgs[i].Timestamp,
				DurationHours: float64(gap) / (60 * 60 * 1000),
				LastSender:    msgs[i-1].Sender,
				BrokenBy:      msgs[i].Sender,
			}
		}
	}
	return longest
}

func analyzeEngagement(msgs []chat.UnifiedMessage, names []string, sessions [][]chat.UnifiedMessage, cfg Config) EngagementStats {
	eng := EngagementStats{
		DoubleTexts:       make(map[string]int, len(names)),
		LongestStreak:     make(map[string]int, len(names)),
		MessageRatio:      make(map[string]float64, len(names)),
		ReactionsGiven:    make(map[string]int, len(names)),
		ReactionsReceived: make(map[string]int, len(names)),
	}
	for _, name := range names {
		eng.DoubleTexts[name] = 0
		eng.LongestStreak[name] = 0
		eng.MessageRatio[name] = 0
		eng.ReactionsGiven[name] = 0
		eng.ReactionsReceived[name] = 0
	}

	doubleTextGap := int64(cfg.DoubleTextGapMin) * 60 * 1000
	streak := 0
	for i, m := range msgs {
		if i > 0 && m.Sender == msgs[i-1].Sender {
			streak++
			if m.Timestamp-msgs[i-1].Timestamp >= doubleTextGap {
				eng.DoubleTexts[m.Sender]++
			}
		} else {
			streak = 1
		}
		if streak > eng.LongestStreak[m.Sender] {
			eng.LongestStreak[m.Sender] = streak
		}
		for _, r := range m.Reactions {
			eng.ReactionsReceived[m.Sender] += r.Count
			if r.Actor != "" && r.Actor != "unknown" {
				if _, known := eng.ReactionsGiven[r.Actor]; known {
					eng.ReactionsGiven[r.Actor] += r.Count
				}
			}
		}
	}

	if total := len(msgs); total > 0 {
		counts := make(map[string]int, len(names))
		for _, m := range msgs {
			counts[m.Sender]++
		}
		for _, name := range names {
			eng.MessageRatio[name] = float64(counts[name]) / float64(total)
		}
	}

	eng.SessionCount = len(sessions)
	if len(sessions) > 0 {
		var totalLen int
		for _, s := range sessions {
			totalLen += len(s)
		}
		eng.AvgSessionLength = float64(totalLen) / float64(len(sessions))
	}
	return eng
}

func monthKey(ts int64) string {
	return time.UnixMilli(ts).UTC().Format("2006-01")
}

func analyzePatterns(msgs []chat.UnifiedMessage, cfg Config) PatternStats {
	patterns := PatternStats{}

	monthly := make(map[string]int)
	for _, m := range msgs {
		monthly[monthKey(m.Timestamp)]++
		wd := time.UnixMilli(m.Timestamp).UTC().Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			patterns.WeekendMessages++
		} else {
			patterns.WeekdayMessages++
		}
	}

	months := make([]string, 0, len(monthly))
	for month := range monthly {
		months = append(months, month)
	}
	sort.Strings(months)
	volumes := make([]float64, 0, len(months))
	for _, month := range months {
		patterns.MonthlyVolume = append(patterns.MonthlyVolume, MonthCount{Month: month, Count: monthly[month]})
		volumes = append(volumes, float64(monthly[month]))
	}

	slope := linearSlope(volumes)
	if avg := mean(volumes); avg > 0 {
		slope /= avg
	}
	patterns.TrendSlope = slope
	patterns.TrendDirection = trendDirection(slope, cfg.TrendStableBand)
	patterns.Bursts = detectBursts(msgs, cfg)
	return patterns
}

// trendDirection maps a normalized slope to a direction word with a dead
// band, so a barely-positive slope still reads as stable.
func trendDirection(slope, band float64) string {
	switch {
	case math.Abs(slope) < band:
		return "stable"
	case slope > 0:
		return "increasing"
	default:
		return "decreasing"
	}
}

func detectBursts(msgs []chat.UnifiedMessage, cfg Config) []Burst {
	maxGap := int64(cfg.BurstMaxGapMin) * 60 * 1000
	var bursts []Burst
	start := 0
	for i := 1; i <= len(msgs); i++ {
		if i == len(msgs) || msgs[i].Timestamp-msgs[i-1].Timestamp > maxGap {
			if count := i - start; count >= cfg.BurstMinMessages {
				bursts = append(bursts, Burst{
					Start: msgs[start].Timestamp,
					End:   msgs[i-1].Timestamp,
					Count: count,
				})
			}
			start = i
		}
	}
	return bursts
}

func analyzeHeatmap(msgs []chat.UnifiedMessage, names []string) HeatmapStats {
	heatmap := HeatmapStats{
		PerPerson: make(map[string]HeatmapGrid, len(names)),
	}
	grids := make(map[string]*HeatmapGrid, len(names))
	for _, name := range names {
		grids[name] = &HeatmapGrid{}
	}
	for _, m := range msgs {
		t := time.UnixMilli(m.Timestamp).UTC()
		day, hour := int(t.Weekday()), t.Hour()
		heatmap.Combined[day][hour]++
		if g, ok := grids[m.Sender]; ok {
			g[day][hour]++
		}
	}
	for _, name := range names {
		heatmap.PerPerson[name] = *grids[name]
	}
	return heatmap
}

func analyzeTrends(msgs []chat.UnifiedMessage, names []string, sessions [][]chat.UnifiedMessage, cfg Config) TrendStats {
	trends := TrendStats{
		InitiationShare: make(map[string][]TrendPoint, len(names)),
	}
	if len(msgs) == 0 {
		return trends
	}

	months := make(map[string]bool)
	for _, m := range msgs {
		months[monthKey(m.Timestamp)] = true
	}
	ordered := make([]string, 0, len(months))
	for month := range months {
		ordered = append(ordered, month)
	}
	sort.Strings(ordered)

	// Monthly response-time averages, all participants pooled.
	monthlyResponse := make(map[string][]float64)
	threshold := float64(cfg.SilenceThresholdMin)
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Sender == msgs[i-1].Sender {
			continue
		}
		gapMin := float64(msgs[i].Timestamp-msgs[i-1].Timestamp) / 60000
		if gapMin < 0 || gapMin > threshold {
			continue
		}
		key := monthKey(msgs[i].Timestamp)
		monthlyResponse[key] = append(monthlyResponse[key], gapMin)
	}

	// Monthly average message length in characters.
	monthlyLength := make(map[string][]float64)
	for _, m := range msgs {
		monthlyLength[monthKey(m.Timestamp)] = append(monthlyLength[monthKey(m.Timestamp)], float64(len([]rune(m.Content))))
	}

	// Monthly initiation share per person, over session starts.
	monthlyInitiations := make(map[string]map[string]int)
	for _, session := range sessions {
		key := monthKey(session[0].Timestamp)
		if monthlyInitiations[key] == nil {
			monthlyInitiations[key] = make(map[string]int)
		}
		monthlyInitiations[key][session[0].Sender]++
	}

	for _, month := range ordered {
		trends.ResponseTime = append(trends.ResponseTime, TrendPoint{Month: month, Value: mean(monthlyResponse[month])})
		trends.MessageLength = append(trends.MessageLength, TrendPoint{Month: month, Value: mean(monthlyLength[month])})

		var totalInits int
		for _, c := range monthlyInitiations[month] {
			totalInits += c
		}
		for _, name := range names {
			share := 0.0
			if totalInits > 0 {
				share = float64(monthlyInitiations[month][name]) / float64(totalInits)
			}
			trends.InitiationShare[name] = append(trends.InitiationShare[name], TrendPoint{Month: month, Value: share})
		}
	}
	return trends
}
