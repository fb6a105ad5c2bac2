package sampling

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/chatscopehq/chatscope/internal/chat"
	"github.com/chatscopehq/chatscope/internal/metrics"
)

var testBase = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// makeConv builds an alternating two-person text conversation with count
// messages, one minute apart.
func makeConv(count int) chat.ParsedConversation {
	msgs := make([]chat.UnifiedMessage, 0, count)
	for i := 0; i < count; i++ {
		sender := "Alice"
		if i%2 == 1 {
			sender = "Bob"
		}
		msgs = append(msgs, chat.UnifiedMessage{
			Index:     i,
			Sender:    sender,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: testBase.Add(time.Duration(i) * time.Minute).UnixMilli(),
			Type:      chat.TypeText,
		})
	}
	conv := chat.ParsedConversation{
		Platform:     chat.PlatformWhatsApp,
		Participants: []chat.Participant{{Name: "Alice"}, {Name: "Bob"}},
		Messages:     msgs,
	}
	if count > 0 {
		conv.Metadata = chat.Metadata{
			TotalMessages: count,
			DateRange:     chat.DateRange{Start: msgs[0].Timestamp, End: msgs[count-1].Timestamp},
			DurationDays:  1,
		}
	}
	return conv
}

func analyze(conv chat.ParsedConversation) metrics.QuantitativeAnalysis {
	return metrics.Compute(conv)
}

func TestSampleMinimumData(t *testing.T) {
	conv := makeConv(10)
	samples, err := Sample(conv, analyze(conv), nil)
	if err != nil {
		t.Fatalf("10 eligible messages must succeed: %v", err)
	}
	if len(samples.Overview) != 10 {
		t.Errorf("overview = %d messages, want all 10", len(samples.Overview))
	}

	conv = makeConv(9)
	if _, err := Sample(conv, analyze(conv), nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("9 messages: err = %v, want ErrInsufficientData", err)
	}
}

func TestSampleAllFilteredOut(t *testing.T) {
	conv := makeConv(20)
	for i := range conv.Messages {
		conv.Messages[i].Type = chat.TypeSystem
	}
	if _, err := Sample(conv, analyze(conv), nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestSampleEligibility(t *testing.T) {
	conv := makeConv(30)
	conv.Messages[3].Type = chat.TypeSystem
	conv.Messages[7].Type = chat.TypeCall
	conv.Messages[11].IsUnsent = true
	conv.Messages[15].Content = ""
	samples, err := Sample(conv, analyze(conv), nil)
	if err != nil {
		t.Fatal(err)
	}

	check := func(list []chat.UnifiedMessage, label string) {
		for _, m := range list {
			if m.Type == chat.TypeSystem || m.Type == chat.TypeCall || m.IsUnsent || m.Content == "" {
				t.Errorf("%s contains ineligible message %+v", label, m)
			}
		}
	}
	check(samples.Overview, "overview")
	check(samples.Dynamics, "dynamics")
	for name, list := range samples.PerPerson {
		check(list, "perPerson["+name+"]")
	}
	if len(samples.Overview) != 26 {
		t.Errorf("overview = %d messages, want 26", len(samples.Overview))
	}
}

func TestSampleCaps(t *testing.T) {
	conv := makeConv(1200)
	samples, err := Sample(conv, analyze(conv), nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(samples.Overview) != OverviewCap {
		t.Errorf("overview = %d, want %d", len(samples.Overview), OverviewCap)
	}
	if len(samples.Dynamics) != DynamicsCap {
		t.Errorf("dynamics = %d, want %d", len(samples.Dynamics), DynamicsCap)
	}
	for name, list := range samples.PerPerson {
		if len(list) > PerPersonCap {
			t.Errorf("perPerson[%s] = %d, want <= %d", name, len(list), PerPersonCap)
		}
	}

	// Spread, not tail-biased: first message always included, last region
	// represented too.
	if samples.Overview[0].Index != 0 {
		t.Errorf("overview does not start at index 0: %d", samples.Overview[0].Index)
	}
	if last := samples.Overview[len(samples.Overview)-1].Index; last < 1100 {
		t.Errorf("overview last index = %d, not spread to the end", last)
	}
	for i := 1; i < len(samples.Overview); i++ {
		if samples.Overview[i-1].Index >= samples.Overview[i].Index {
			t.Fatalf("overview not chronological at %d", i)
		}
	}
}

func TestSampleTwoPersonScenario(t *testing.T) {
	// 20 alternating text messages over 2 days: all 20 in overview, both
	// participants present.
	conv := makeConv(20)
	conv.Metadata.DurationDays = 2
	samples, err := Sample(conv, analyze(conv), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples.Overview) != 20 {
		t.Errorf("overview = %d, want 20", len(samples.Overview))
	}
	if len(samples.PerPerson) != 2 {
		t.Fatalf("perPerson keys = %d, want 2", len(samples.PerPerson))
	}
	if len(samples.PerPerson["Alice"]) != 10 || len(samples.PerPerson["Bob"]) != 10 {
		t.Errorf("per-person counts = %d/%d", len(samples.PerPerson["Alice"]), len(samples.PerPerson["Bob"]))
	}
}

func TestSamplePersonCapRanked(t *testing.T) {
	// 12 senders with distinct volumes; only the 8 highest survive.
	var msgs []chat.UnifiedMessage
	idx := 0
	for p := 0; p < 12; p++ {
		name := fmt.Sprintf("P%02d", p)
		for m := 0; m <= p; m++ {
			msgs = append(msgs, chat.UnifiedMessage{
				Index:     idx,
				Sender:    name,
				Content:   "hi",
				Timestamp: testBase.Add(time.Duration(idx) * time.Minute).UnixMilli(),
				Type:      chat.TypeText,
			})
			idx++
		}
	}
	conv := chat.ParsedConversation{
		Platform: chat.PlatformDiscord,
		Messages: msgs,
		Metadata: chat.Metadata{TotalMessages: len(msgs), DurationDays: 1},
	}
	samples, err := Sample(conv, analyze(conv), nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(samples.PerPerson) != MaxPersons {
		t.Fatalf("perPerson keys = %d, want %d", len(samples.PerPerson), MaxPersons)
	}
	// P00..P03 have the lowest volumes and must be dropped.
	for _, low := range []string{"P00", "P01", "P02", "P03"} {
		if _, ok := samples.PerPerson[low]; ok {
			t.Errorf("low-volume sender %s kept", low)
		}
	}
	if _, ok := samples.PerPerson["P11"]; !ok {
		t.Error("highest-volume sender dropped")
	}
}

func TestSampleDynamicsBriefingBias(t *testing.T) {
	conv := makeConv(1000)
	qa := analyze(conv)

	// Flag a narrow window near the end of the conversation.
	flagStart := testBase.Add(900 * time.Minute).UnixMilli()
	flagEnd := testBase.Add(999 * time.Minute).UnixMilli()
	briefing := &Briefing{FlaggedRanges: []DateRange{{Start: flagStart, End: flagEnd}}}

	plain, err := Sample(conv, qa, nil)
	if err != nil {
		t.Fatal(err)
	}
	biased, err := Sample(conv, qa, briefing)
	if err != nil {
		t.Fatal(err)
	}

	inWindow := func(list []chat.UnifiedMessage) int {
		count := 0
		for _, m := range list {
			if m.Timestamp >= flagStart && m.Timestamp <= flagEnd {
				count++
			}
		}
		return count
	}
	if got, base := inWindow(biased.Dynamics), inWindow(plain.Dynamics); got <= base {
		t.Errorf("flagged window density %d not above baseline %d", got, base)
	}
	if len(biased.Dynamics) > DynamicsCap {
		t.Errorf("dynamics = %d, over cap", len(biased.Dynamics))
	}
	for i := 1; i < len(biased.Dynamics); i++ {
		if biased.Dynamics[i-1].Index >= biased.Dynamics[i].Index {
			t.Fatalf("biased dynamics not chronological at %d", i)
		}
	}
}

func TestSampleDynamicsTopicBias(t *testing.T) {
	conv := makeConv(600)
	for i := range conv.Messages {
		if i%50 == 0 {
			conv.Messages[i].Content = "we should talk about the Wedding plans"
		}
	}
	qa := analyze(conv)
	briefing := &Briefing{Topics: []string{"wedding"}}

	samples, err := Sample(conv, qa, briefing)
	if err != nil {
		t.Fatal(err)
	}
	topicCount := 0
	for _, m := range samples.Dynamics {
		if m.Index%50 == 0 {
			topicCount++
		}
	}
	// All 12 topic messages fit inside the flagged share of the cap.
	if topicCount != 12 {
		t.Errorf("topic messages in dynamics = %d, want 12", topicCount)
	}
}

func TestSampleIdempotent(t *testing.T) {
	conv := makeConv(777)
	qa := analyze(conv)
	briefing := &Briefing{Topics: []string{"message 5"}}

	first, err := Sample(conv, qa, briefing)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Sample(conv, qa, briefing)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs produced different samples")
	}
}

func TestDigestDeterministic(t *testing.T) {
	conv := makeConv(40)
	qa := analyze(conv)

	a, err := Sample(conv, qa, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Sample(conv, qa, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.QuantitativeContext != b.QuantitativeContext {
		t.Error("digest not deterministic")
	}
	for _, want := range []string{"Alice", "Bob", "Message ratio", "Sessions", "volume trend", "Population rank"} {
		if !strings.Contains(a.QuantitativeContext, want) {
			t.Errorf("digest missing %q:\n%s", want, a.QuantitativeContext)
		}
	}
}

func TestDirectionWord(t *testing.T) {
	tests := []struct {
		values []float64
		want   string
	}{
		{[]float64{10, 10.1, 10.05}, "stable"},
		{[]float64{1, 5, 9}, "increasing"},
		{[]float64{9, 5, 1}, "decreasing"},
		{[]float64{5}, "stable"},
		{nil, "stable"},
	}
	for _, tt := range tests {
		if got := directionWord(tt.values); got != tt.want {
			t.Errorf("directionWord(%v) = %q, want %q", tt.values, got, tt.want)
		}
	}
}
