package chat

import "testing"

func TestBuildOrderingInvariant(t *testing.T) {
	b := newBuilder(PlatformDiscord, "test")
	b.addParticipant("Alice", "1")
	b.addParticipant("Bob", "2")
	// Out of order on purpose, with a timestamp tie between b and c.
	b.add(UnifiedMessage{Sender: "Alice", Content: "third", Timestamp: 3000, Type: TypeText}, "c", "")
	b.add(UnifiedMessage{Sender: "Bob", Content: "first", Timestamp: 1000, Type: TypeText}, "a", "")
	b.add(UnifiedMessage{Sender: "Bob", Content: "tie", Timestamp: 3000, Type: TypeText}, "d", "")
	b.add(UnifiedMessage{Sender: "Alice", Content: "second", Timestamp: 2000, Type: TypeText}, "b", "")
	conv := b.build()

	for i, msg := range conv.Messages {
		if msg.Index != i {
			t.Errorf("messages[%d].Index = %d", i, msg.Index)
		}
		if i > 0 && conv.Messages[i-1].Timestamp > msg.Timestamp {
			t.Errorf("timestamps not ascending at %d", i)
		}
	}
	// Stable sort keeps source order for the tie.
	if conv.Messages[2].Content != "third" || conv.Messages[3].Content != "tie" {
		t.Errorf("tie order broken: %q then %q", conv.Messages[2].Content, conv.Messages[3].Content)
	}
}

func TestBuildReplyResolution(t *testing.T) {
	b := newBuilder(PlatformTelegram, "")
	b.add(UnifiedMessage{Sender: "A", Content: "q", Timestamp: 2000, Type: TypeText}, "10", "")
	b.add(UnifiedMessage{Sender: "B", Content: "a", Timestamp: 3000, Type: TypeText}, "11", "10")
	b.add(UnifiedMessage{Sender: "A", Content: "dangling", Timestamp: 4000, Type: TypeText}, "12", "99")
	conv := b.build()

	if conv.Messages[1].ReplyToIndex == nil || *conv.Messages[1].ReplyToIndex != 0 {
		t.Errorf("reply index = %v, want 0", conv.Messages[1].ReplyToIndex)
	}
	// References to messages absent from the export stay unresolved.
	if conv.Messages[2].ReplyToIndex != nil {
		t.Errorf("dangling reply resolved to %d", *conv.Messages[2].ReplyToIndex)
	}
}

func TestBuildMetadata(t *testing.T) {
	const dayMs = 24 * 60 * 60 * 1000

	b := newBuilder(PlatformWhatsApp, "")
	b.addParticipant("Alice", "")
	b.addParticipant("Bob", "")
	b.add(UnifiedMessage{Sender: "Alice", Content: "x", Timestamp: 0, Type: TypeText}, "", "")
	b.add(UnifiedMessage{Sender: "Bob", Content: "y", Timestamp: dayMs + 1, Type: TypeText}, "", "")
	conv := b.build()

	if conv.Metadata.TotalMessages != 2 {
		t.Errorf("totalMessages = %d", conv.Metadata.TotalMessages)
	}
	if conv.Metadata.IsGroup {
		t.Error("two participants flagged as group")
	}
	// Span of one day plus 1ms rounds up to 2 days.
	if conv.Metadata.DurationDays != 2 {
		t.Errorf("durationDays = %d, want 2", conv.Metadata.DurationDays)
	}
	if conv.Metadata.DateRange.Start != 0 || conv.Metadata.DateRange.End != dayMs+1 {
		t.Errorf("dateRange = %+v", conv.Metadata.DateRange)
	}

	b2 := newBuilder(PlatformWhatsApp, "")
	for _, name := range []string{"A", "B", "C"} {
		b2.addParticipant(name, "")
	}
	b2.add(UnifiedMessage{Sender: "A", Content: "x", Timestamp: 5000, Type: TypeText}, "", "")
	conv2 := b2.build()
	if !conv2.Metadata.IsGroup {
		t.Error("three participants not flagged as group")
	}
	if conv2.Metadata.DurationDays != 1 {
		t.Errorf("single-message durationDays = %d, want 1", conv2.Metadata.DurationDays)
	}
}

func TestAddParticipantDedup(t *testing.T) {
	b := newBuilder(PlatformDiscord, "")
	b.addParticipant("Alice", "100")
	b.addParticipant("Alice", "100")
	b.addParticipant("Bob", "")
	b.addParticipant("Bob", "200")
	b.addParticipant("Bob", "200")
	conv := b.build()

	if len(conv.Participants) != 2 {
		t.Fatalf("participants = %+v, want 2 entries", conv.Participants)
	}
	if conv.Participants[1].PlatformID != "200" {
		t.Errorf("name-only entry not upgraded with platform ID: %+v", conv.Participants[1])
	}
}

func TestParseUnknownPlatform(t *testing.T) {
	conv := Parse([]byte("anything"), "myspace")
	if len(conv.Messages) != 0 || len(conv.Participants) != 0 {
		t.Error("unknown platform should yield empty conversation")
	}
	if conv.Platform != "myspace" {
		t.Errorf("platform = %q", conv.Platform)
	}
}

func TestSupportedPlatform(t *testing.T) {
	for _, p := range []string{PlatformWhatsApp, PlatformTelegram, PlatformInstagram, PlatformDiscord} {
		if !SupportedPlatform(p) {
			t.Errorf("SupportedPlatform(%q) = false", p)
		}
	}
	if SupportedPlatform("irc") {
		t.Error("SupportedPlatform(irc) = true")
	}
}
