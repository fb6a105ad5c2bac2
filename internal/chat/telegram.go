package chat

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Telegram Desktop JSON export (result.json). Text bodies are either a plain
// string or an array mixing strings and typed entity objects.
type telegramExport struct {
	Name     string            `json:"name"`
	Messages []telegramMessage `json:"messages"`
}

type telegramMessage struct {
	ID           int64              `json:"id"`
	Type         string             `json:"type"`
	Date         string             `json:"date"`
	DateUnixtime string             `json:"date_unixtime"`
	From         string             `json:"from"`
	FromID       string             `json:"from_id"`
	Actor        string             `json:"actor"`
	Action       string             `json:"action"`
	ReplyTo      int64              `json:"reply_to_message_id"`
	Text         json.RawMessage    `json:"text"`
	Photo        string             `json:"photo"`
	File         string             `json:"file"`
	MediaType    string             `json:"media_type"`
	StickerEmoji string             `json:"sticker_emoji"`
	Edited       string             `json:"edited"`
	ViaBot       string             `json:"via_bot"`
	Reactions    []telegramReaction `json:"reactions"`
}

type telegramReaction struct {
	Emoji  string `json:"emoji"`
	Count  int    `json:"count"`
	Recent []struct {
		From string `json:"from"`
	} `json:"recent"`
}

type telegramTextEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type telegramAdapter struct{}

func (telegramAdapter) parse(raw []byte) ParsedConversation {
	var export telegramExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return emptyConversation(PlatformTelegram)
	}

	b := newBuilder(PlatformTelegram, export.Name)
	for _, m := range export.Messages {
		ts, ok := tgTimestamp(m)
		if !ok {
			continue
		}

		if m.Type == "service" {
			// Calls are exported as service messages; other service actions
			// (pins, joins, title changes) are plain system events.
			if strings.Contains(m.Action, "phone_call") || strings.Contains(m.Action, "group_call") {
				sender := m.Actor
				b.addParticipant(sender, "")
				b.add(UnifiedMessage{Sender: sender, Timestamp: ts, Type: TypeCall}, tgID(m.ID), "")
			} else {
				b.add(UnifiedMessage{Sender: m.Actor, Timestamp: ts, Type: TypeSystem}, tgID(m.ID), "")
			}
			continue
		}
		if m.Type != "message" || m.From == "" {
			continue
		}
		// Bot output is relayed with via_bot set; bot accounts themselves
		// carry a trailing "bot" in the handle.
		if m.ViaBot != "" || isTelegramBot(m.From, m.FromID) {
			continue
		}

		b.addParticipant(m.From, m.FromID)

		text, mentions := tgText(m.Text)
		msg := UnifiedMessage{
			Sender:    m.From,
			Timestamp: ts,
			IsEdited:  m.Edited != "",
			Reactions: tgReactions(m.Reactions),
			Mentions:  mentions,
		}

		switch {
		case m.MediaType == "sticker":
			msg.Type = TypeSticker
			msg.Content = m.StickerEmoji
		case m.Photo != "" || m.File != "":
			msg.Type = TypeMedia
			msg.HasMedia = true
			msg.Content = text
			msg.HasLink = containsURL(text)
		default:
			msg.Content = text
			msg.Type, msg.HasLink = classifyText(text)
		}

		replyTo := ""
		if m.ReplyTo != 0 {
			replyTo = tgID(m.ReplyTo)
		}
		b.add(msg, tgID(m.ID), replyTo)
	}

	conv := b.build()
	if len(conv.Messages) == 0 {
		return emptyConversation(PlatformTelegram)
	}
	return conv
}

func tgID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func tgTimestamp(m telegramMessage) (int64, bool) {
	if m.DateUnixtime != "" {
		if secs, err := strconv.ParseInt(m.DateUnixtime, 10, 64); err == nil {
			return secs * 1000, true
		}
	}
	if m.Date != "" {
		if ts, err := time.ParseInLocation("2006-01-02T15:04:05", m.Date, time.UTC); err == nil {
			return ts.UnixMilli(), true
		}
	}
	return 0, false
}

// Telegram bot handles are required to end in "bot"; exports prefix their
// IDs with "channel" or "bot" rather than "user".
func isTelegramBot(name, fromID string) bool {
	if strings.HasPrefix(fromID, "bot") || strings.HasPrefix(fromID, "channel") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), "bot") && fromID == ""
}

// tgText flattens the text field (string or entity array) and collects
// non-bot mention entities as display handles.
func tgText(raw json.RawMessage) (string, []string) {
	if len(raw) == 0 {
		return "", nil
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", nil
	}

	var sb strings.Builder
	var mentions []string
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			sb.WriteString(s)
			continue
		}
		var entity telegramTextEntity
		if err := json.Unmarshal(part, &entity); err != nil {
			continue
		}
		sb.WriteString(entity.Text)
		if entity.Type == "mention" {
			handle := strings.TrimPrefix(entity.Text, "@")
			if handle != "" && !strings.HasSuffix(strings.ToLower(handle), "bot") {
				mentions = append(mentions, handle)
			}
		}
	}
	return sb.String(), mentions
}

func tgReactions(reactions []telegramReaction) []Reaction {
	if len(reactions) == 0 {
		return nil
	}
	out := make([]Reaction, 0, len(reactions))
	for _, r := range reactions {
		if r.Emoji == "" || r.Count <= 0 {
			continue
		}
		actor := "unknown"
		if len(r.Recent) > 0 && r.Recent[0].From != "" {
			actor = r.Recent[0].From
		}
		out = append(out, Reaction{Emoji: r.Emoji, Count: r.Count, Actor: actor})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
