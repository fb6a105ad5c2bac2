package chat

import (
	"strings"
	"testing"
)

const waSample = `25.01.2024, 14:30 - Messages and calls are end-to-end encrypted.
25.01.2024, 14:31 - Alice: Hello Bob
25.01.2024, 14:32 - Bob: Hi Alice!
How are you?
25.01.2024, 14:33 - Alice: <Media omitted>
25.01.2024, 14:34 - Bob: check this https://example.com/article
25.01.2024, 14:35 - Alice: https://example.com
25.01.2024, 14:36 - Bob: This message was deleted
25.01.2024, 14:37 - Alice: Missed voice call
25.01.2024, 14:40 - Bob: sticker omitted
`

func TestWhatsAppParse(t *testing.T) {
	conv := Parse([]byte(waSample), PlatformWhatsApp)

	if conv.Platform != PlatformWhatsApp {
		t.Errorf("platform = %q, want %q", conv.Platform, PlatformWhatsApp)
	}
	if len(conv.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(conv.Participants))
	}
	// The encryption notice has no "Name: " separator and must be dropped.
	if len(conv.Messages) != 8 {
		t.Fatalf("messages = %d, want 8", len(conv.Messages))
	}

	first := conv.Messages[0]
	if first.Sender != "Alice" || first.Content != "Hello Bob" || first.Type != TypeText {
		t.Errorf("first message = %+v", first)
	}

	multi := conv.Messages[1]
	if !strings.Contains(multi.Content, "How are you?") {
		t.Errorf("continuation line not merged: %q", multi.Content)
	}

	media := conv.Messages[2]
	if media.Type != TypeMedia || !media.HasMedia || media.Content != "" {
		t.Errorf("media message = %+v", media)
	}

	embedded := conv.Messages[3]
	if embedded.Type != TypeText || !embedded.HasLink {
		t.Errorf("embedded link message = %+v", embedded)
	}

	bare := conv.Messages[4]
	if bare.Type != TypeLink || !bare.HasLink {
		t.Errorf("bare URL message = %+v", bare)
	}

	deleted := conv.Messages[5]
	if !deleted.IsUnsent {
		t.Errorf("deleted message not flagged unsent: %+v", deleted)
	}

	call := conv.Messages[6]
	if call.Type != TypeCall {
		t.Errorf("call message type = %q, want %q", call.Type, TypeCall)
	}

	sticker := conv.Messages[7]
	if sticker.Type != TypeSticker {
		t.Errorf("sticker message type = %q, want %q", sticker.Type, TypeSticker)
	}
}

func TestWhatsAppParseIOSFormat(t *testing.T) {
	sample := "[25.01.2024, 14:30:15] Alice: Hello\n[25.01.2024, 14:31:20] Bob: Hey\n"
	conv := Parse([]byte(sample), PlatformWhatsApp)

	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Sender != "Alice" {
		t.Errorf("sender = %q, want Alice", conv.Messages[0].Sender)
	}
	if conv.Messages[0].Timestamp >= conv.Messages[1].Timestamp {
		t.Errorf("timestamps not ascending: %d >= %d", conv.Messages[0].Timestamp, conv.Messages[1].Timestamp)
	}
}

func TestWhatsAppParseEditedMessage(t *testing.T) {
	sample := "25.01.2024, 14:30 - Alice: fixed typo <This message was edited>\n"
	conv := Parse([]byte(sample), PlatformWhatsApp)

	if len(conv.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(conv.Messages))
	}
	msg := conv.Messages[0]
	if !msg.IsEdited {
		t.Error("edited message not flagged")
	}
	if msg.Content != "fixed typo" {
		t.Errorf("content = %q, want %q", msg.Content, "fixed typo")
	}
}

func TestWhatsAppParseMalformed(t *testing.T) {
	for _, input := range []string{"", "not a chat export", "{\"json\": true}"} {
		conv := Parse([]byte(input), PlatformWhatsApp)
		if len(conv.Messages) != 0 || len(conv.Participants) != 0 {
			t.Errorf("input %q: expected empty conversation, got %d messages", input, len(conv.Messages))
		}
	}
}
