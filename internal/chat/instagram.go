package chat

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Instagram data-download JSON (message_1.json). Messages arrive newest
// first; the file mis-encodes UTF-8 as latin-1 escape sequences, which
// igFixEncoding undoes.
type instagramExport struct {
	Title        string `json:"title"`
	Participants []struct {
		Name string `json:"name"`
	} `json:"participants"`
	Messages []instagramMessage `json:"messages"`
}

type instagramMessage struct {
	SenderName  string            `json:"sender_name"`
	TimestampMs int64             `json:"timestamp_ms"`
	Content     string            `json:"content"`
	Photos      []json.RawMessage `json:"photos"`
	Videos      []json.RawMessage `json:"videos"`
	AudioFiles  []json.RawMessage `json:"audio_files"`
	Sticker *struct {
		URI string `json:"uri"`
	} `json:"sticker"`
	Share *struct {
		Link string `json:"link"`
	} `json:"share"`
	Reactions []struct {
		Reaction string `json:"reaction"`
		Actor    string `json:"actor"`
	} `json:"reactions"`
	IsUnsent     bool   `json:"is_unsent"`
	CallDuration *int64 `json:"call_duration"`
}

type instagramAdapter struct{}

func (instagramAdapter) parse(raw []byte) ParsedConversation {
	var export instagramExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return emptyConversation(PlatformInstagram)
	}

	b := newBuilder(PlatformInstagram, igFixEncoding(export.Title))
	for _, p := range export.Participants {
		b.addParticipant(igFixEncoding(p.Name), "")
	}

	// Reverse so timestamp ties keep the original chronological order.
	for i := len(export.Messages) - 1; i >= 0; i-- {
		m := export.Messages[i]
		if m.SenderName == "" || m.TimestampMs == 0 {
			continue
		}
		sender := igFixEncoding(m.SenderName)
		b.addParticipant(sender, "")

		msg := UnifiedMessage{
			Sender:    sender,
			Timestamp: m.TimestampMs,
			IsUnsent:  m.IsUnsent,
			Reactions: igReactions(m),
		}

		content := igFixEncoding(m.Content)
		switch {
		case m.IsUnsent:
			msg.Type = TypeText
		case m.CallDuration != nil:
			msg.Type = TypeCall
		case m.Sticker != nil:
			msg.Type = TypeSticker
			msg.Content = m.Sticker.URI
		case len(m.Photos) > 0 || len(m.Videos) > 0 || len(m.AudioFiles) > 0:
			msg.Type = TypeMedia
			msg.HasMedia = true
			msg.Content = content
			msg.HasLink = containsURL(content)
		case m.Share != nil && m.Share.Link != "":
			msg.Type = TypeLink
			msg.HasLink = true
			if content != "" {
				msg.Content = content
			} else {
				msg.Content = m.Share.Link
			}
		default:
			msg.Content = content
			msg.Type, msg.HasLink = classifyText(content)
		}

		b.add(msg, "", "")
	}

	conv := b.build()
	if len(conv.Messages) == 0 {
		return emptyConversation(PlatformInstagram)
	}
	return conv
}

func igReactions(m instagramMessage) []Reaction {
	if len(m.Reactions) == 0 {
		return nil
	}
	out := make([]Reaction, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		emoji := igFixEncoding(r.Reaction)
		if emoji == "" {
			continue
		}
		actor := igFixEncoding(r.Actor)
		if actor == "" {
			actor = "unknown"
		}
		out = append(out, Reaction{Emoji: emoji, Count: 1, Actor: actor})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// igFixEncoding repairs Meta's double-encoded strings: the export writes
// each UTF-8 byte as its own \u00XX escape, so the decoded string holds
// latin-1 code points that are really UTF-8 bytes.
func igFixEncoding(s string) string {
	needsFix := false
	for _, r := range s {
		if r >= 0x80 && r <= 0xFF {
			needsFix = true
			break
		}
	}
	if !needsFix {
		return s
	}

	bytes := make([]byte, 0, len(s))
	for _, r := range s {
		if r <= 0xFF {
			bytes = append(bytes, byte(r))
		} else {
			bytes = utf8.AppendRune(bytes, r)
		}
	}
	if !utf8.Valid(bytes) {
		return s
	}
	return strings.ToValidUTF8(string(bytes), "")
}
