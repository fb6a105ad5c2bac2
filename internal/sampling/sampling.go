// Package sampling derives bounded, representative message samples from a
// parsed conversation for LLM consumption. Selection is fully deterministic:
// the same inputs always produce the same message sets in the same order.
package sampling

import (
	"errors"
	"sort"
	"strings"

	"github.com/chatscopehq/chatscope/internal/chat"
	"github.com/chatscopehq/chatscope/internal/metrics"
)

// Caps per sample bundle.
const (
	OverviewCap  = 250
	DynamicsCap  = 200
	PerPersonCap = 150
	MaxPersons   = 8

	// MinEligible is the smallest eligible-message count sampling accepts.
	MinEligible = 10

	// flaggedShare of the dynamics cap is reserved for briefing-flagged
	// messages before falling back to even spread.
	flaggedShare = 0.7
)

// ErrInsufficientData is returned when fewer than MinEligible messages
// survive eligibility filtering.
var ErrInsufficientData = errors.New("insufficient data for analysis")

// DateRange flags one period of interest in a briefing, epoch milliseconds.
type DateRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Briefing is an optional, externally supplied set of flagged date ranges
// and topics (typically from an earlier AI pass) that biases dynamics
// sampling density. It is a plain immutable value, never global state.
type Briefing struct {
	FlaggedRanges []DateRange `json:"flaggedRanges,omitempty"`
	Topics        []string    `json:"topics,omitempty"`
}

// AnalysisSamples is the disposable, derived view handed to the AI stages.
type AnalysisSamples struct {
	Overview            []chat.UnifiedMessage            `json:"overview"`
	Dynamics            []chat.UnifiedMessage            `json:"dynamics"`
	PerPerson           map[string][]chat.UnifiedMessage `json:"perPerson"`
	QuantitativeContext string                           `json:"quantitativeContext"`
}

// Sample builds the bounded sample bundle. briefing may be nil.
func Sample(conv chat.ParsedConversation, qa metrics.QuantitativeAnalysis, briefing *Briefing) (*AnalysisSamples, error) {
	eligible := eligibleMessages(conv.Messages)
	if len(eligible) < MinEligible {
		return nil, ErrInsufficientData
	}

	return &AnalysisSamples{
		Overview:            spreadSelect(eligible, OverviewCap),
		Dynamics:            sampleDynamics(eligible, briefing),
		PerPerson:           samplePerPerson(eligible),
		QuantitativeContext: renderDigest(conv, qa),
	}, nil
}

// Eligible reports whether a message may appear in any sample: not a
// system or call event, not unsent, and with non-empty content.
func Eligible(m chat.UnifiedMessage) bool {
	if m.IsUnsent {
		return false
	}
	if m.Type == chat.TypeSystem || m.Type == chat.TypeCall {
		return false
	}
	return m.Content != ""
}

func eligibleMessages(msgs []chat.UnifiedMessage) []chat.UnifiedMessage {
	out := make([]chat.UnifiedMessage, 0, len(msgs))
	for _, m := range msgs {
		if Eligible(m) {
			out = append(out, m)
		}
	}
	return out
}

// spreadSelect picks up to limit messages evenly across the input: index
// floor(i*n/limit) for i in [0, limit). The first message is always
// included and the output stays chronological. Below the limit the input
// is copied whole.
func spreadSelect(msgs []chat.UnifiedMessage, limit int) []chat.UnifiedMessage {
	n := len(msgs)
	if n <= limit {
		out := make([]chat.UnifiedMessage, n)
		copy(out, msgs)
		return out
	}
	out := make([]chat.UnifiedMessage, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, msgs[i*n/limit])
	}
	return out
}

// sampleDynamics weights selection toward briefing-flagged periods and
// topics, falling back to an even spread without a briefing.
func sampleDynamics(eligible []chat.UnifiedMessage, briefing *Briefing) []chat.UnifiedMessage {
	if briefing == nil || (len(briefing.FlaggedRanges) == 0 && len(briefing.Topics) == 0) {
		return spreadSelect(eligible, DynamicsCap)
	}

	flagged := make([]chat.UnifiedMessage, 0, len(eligible))
	for _, m := range eligible {
		if briefing.matches(m) {
			flagged = append(flagged, m)
		}
	}
	if len(flagged) == 0 {
		return spreadSelect(eligible, DynamicsCap)
	}

	flaggedCap := int(float64(DynamicsCap) * flaggedShare)
	picked := spreadSelect(flagged, flaggedCap)

	// Fill the remainder from the whole timespan, skipping already-picked
	// indices, then restore chronological order.
	seen := make(map[int]bool, len(picked))
	for _, m := range picked {
		seen[m.Index] = true
	}
	for _, m := range spreadSelect(eligible, DynamicsCap) {
		if len(picked) >= DynamicsCap {
			break
		}
		if !seen[m.Index] {
			seen[m.Index] = true
			picked = append(picked, m)
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].Index < picked[j].Index })
	return picked
}

func (b *Briefing) matches(m chat.UnifiedMessage) bool {
	for _, r := range b.FlaggedRanges {
		if m.Timestamp >= r.Start && m.Timestamp <= r.End {
			return true
		}
	}
	if len(b.Topics) > 0 {
		content := strings.ToLower(m.Content)
		for _, topic := range b.Topics {
			if topic != "" && strings.Contains(content, strings.ToLower(topic)) {
				return true
			}
		}
	}
	return false
}

// samplePerPerson caps at MaxPersons participants (highest message volume
// wins, ties broken by name ascending) with a spread selection per person.
func samplePerPerson(eligible []chat.UnifiedMessage) map[string][]chat.UnifiedMessage {
	bySender := make(map[string][]chat.UnifiedMessage)
	for _, m := range eligible {
		bySender[m.Sender] = append(bySender[m.Sender], m)
	}

	names := make([]string, 0, len(bySender))
	for name := range bySender {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := len(bySender[names[i]]), len(bySender[names[j]])
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	if len(names) > MaxPersons {
		names = names[:MaxPersons]
	}

	out := make(map[string][]chat.UnifiedMessage, len(names))
	for _, name := range names {
		out[name] = spreadSelect(bySender[name], PerPersonCap)
	}
	return out
}
