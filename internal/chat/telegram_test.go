package chat

import "testing"

const tgSample = `{
  "name": "Alice",
  "type": "personal_chat",
  "messages": [
    {
      "id": 1,
      "type": "message",
      "date": "2024-01-25T14:30:15",
      "date_unixtime": "1706193015",
      "from": "Alice",
      "from_id": "user100",
      "text": "Hello Bob"
    },
    {
      "id": 2,
      "type": "message",
      "date_unixtime": "1706193075",
      "from": "Bob",
      "from_id": "user200",
      "reply_to_message_id": 1,
      "text": [{"type": "plain", "text": "Hi "}, {"type": "mention", "text": "@alice"}]
    },
    {
      "id": 3,
      "type": "message",
      "date_unixtime": "1706193135",
      "from": "Alice",
      "from_id": "user100",
      "photo": "photos/photo_1.jpg",
      "text": "",
      "reactions": [{"type": "emoji", "emoji": "👍", "count": 2, "recent": [{"from": "Bob"}]}]
    },
    {
      "id": 4,
      "type": "message",
      "date_unixtime": "1706193195",
      "from": "Bob",
      "from_id": "user200",
      "media_type": "sticker",
      "sticker_emoji": "😀",
      "text": ""
    },
    {
      "id": 5,
      "type": "service",
      "date_unixtime": "1706193255",
      "actor": "Alice",
      "action": "phone_call",
      "text": ""
    },
    {
      "id": 6,
      "type": "service",
      "date_unixtime": "1706193315",
      "actor": "Alice",
      "action": "pin_message",
      "text": ""
    },
    {
      "id": 7,
      "type": "message",
      "date_unixtime": "1706193375",
      "from": "WeatherBot",
      "from_id": "bot999",
      "text": "Forecast: sunny"
    }
  ]
}`

func TestTelegramParse(t *testing.T) {
	conv := Parse([]byte(tgSample), PlatformTelegram)

	if conv.Title != "Alice" {
		t.Errorf("title = %q, want Alice", conv.Title)
	}
	if len(conv.Participants) != 2 {
		t.Fatalf("participants = %d, want 2 (bot excluded)", len(conv.Participants))
	}
	// Bot message dropped; call + pin kept as call/system entries.
	if len(conv.Messages) != 6 {
		t.Fatalf("messages = %d, want 6", len(conv.Messages))
	}

	first := conv.Messages[0]
	if first.Content != "Hello Bob" || first.Timestamp != 1706193015000 {
		t.Errorf("first message = %+v", first)
	}

	reply := conv.Messages[1]
	if reply.ReplyToIndex == nil || *reply.ReplyToIndex != 0 {
		t.Errorf("reply not resolved to index 0: %+v", reply.ReplyToIndex)
	}
	if reply.Content != "Hi @alice" {
		t.Errorf("entity text not flattened: %q", reply.Content)
	}
	if len(reply.Mentions) != 1 || reply.Mentions[0] != "alice" {
		t.Errorf("mentions = %v, want [alice]", reply.Mentions)
	}

	photo := conv.Messages[2]
	if photo.Type != TypeMedia || !photo.HasMedia {
		t.Errorf("photo message = %+v", photo)
	}
	if len(photo.Reactions) != 1 || photo.Reactions[0].Actor != "Bob" || photo.Reactions[0].Count != 2 {
		t.Errorf("reactions = %+v", photo.Reactions)
	}

	sticker := conv.Messages[3]
	if sticker.Type != TypeSticker || sticker.Content != "😀" {
		t.Errorf("sticker message = %+v", sticker)
	}

	call := conv.Messages[4]
	if call.Type != TypeCall || call.Sender != "Alice" {
		t.Errorf("call message = %+v", call)
	}

	pin := conv.Messages[5]
	if pin.Type != TypeSystem {
		t.Errorf("pin message type = %q, want system", pin.Type)
	}
}

func TestTelegramParseBotMention(t *testing.T) {
	sample := `{
  "name": "chat",
  "messages": [
    {
      "id": 1,
      "type": "message",
      "date_unixtime": "1706193015",
      "from": "Alice",
      "from_id": "user100",
      "text": [{"type": "mention", "text": "@weatherbot"}, " look"]
    }
  ]
}`
	conv := Parse([]byte(sample), PlatformTelegram)
	if len(conv.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(conv.Messages))
	}
	if conv.Messages[0].Mentions != nil {
		t.Errorf("bot mention not excluded: %v", conv.Messages[0].Mentions)
	}
}

func TestTelegramParseMalformed(t *testing.T) {
	conv := Parse([]byte("not json"), PlatformTelegram)
	if len(conv.Messages) != 0 || len(conv.Participants) != 0 {
		t.Errorf("expected empty conversation, got %+v", conv.Metadata)
	}
}
