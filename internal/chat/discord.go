package chat

import (
	"encoding/json"
	"time"
)

// DiscordChatExporter JSON format.
type discordExport struct {
	Channel struct {
		Name string `json:"name"`
	} `json:"channel"`
	Messages []discordMessage `json:"messages"`
}

type discordAuthor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	IsBot    bool   `json:"isBot"`
}

type discordMessage struct {
	ID              string        `json:"id"`
	Type            string        `json:"type"`
	Timestamp       string        `json:"timestamp"`
	TimestampEdited *string       `json:"timestampEdited"`
	Content         string        `json:"content"`
	Author          discordAuthor `json:"author"`
	Attachments     []struct {
		URL string `json:"url"`
	} `json:"attachments"`
	Stickers []struct {
		Name string `json:"name"`
	} `json:"stickers"`
	Reactions []struct {
		Emoji struct {
			Name string `json:"name"`
		} `json:"emoji"`
		Count int `json:"count"`
	} `json:"reactions"`
	Mentions  []discordAuthor `json:"mentions"`
	Reference *struct {
		MessageID string `json:"messageId"`
	} `json:"reference"`
}

// Only these exporter message types carry user content; everything else
// (joins, pins, boosts) is a system event.
var discordContentTypes = map[string]bool{
	"Default": true,
	"Reply":   true,
}

type discordAdapter struct{}

func (discordAdapter) parse(raw []byte) ParsedConversation {
	var export discordExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return emptyConversation(PlatformDiscord)
	}

	b := newBuilder(PlatformDiscord, export.Channel.Name)
	for _, m := range export.Messages {
		if m.Author.IsBot {
			continue
		}
		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		if err != nil {
			continue
		}
		if !discordContentTypes[m.Type] {
			continue
		}

		name := discordDisplayName(m.Author)
		b.addParticipant(name, m.Author.ID)

		msg := UnifiedMessage{
			Sender:    name,
			Timestamp: ts.UnixMilli(),
			IsEdited:  m.TimestampEdited != nil,
			Reactions: discordReactions(m),
			Mentions:  discordMentions(m.Mentions),
		}

		switch {
		case len(m.Stickers) > 0:
			msg.Type = TypeSticker
			msg.Content = m.Stickers[0].Name
		case len(m.Attachments) > 0:
			msg.Type = TypeMedia
			msg.HasMedia = true
			msg.Content = m.Content
			msg.HasLink = containsURL(m.Content)
		default:
			msg.Content = m.Content
			msg.Type, msg.HasLink = classifyText(m.Content)
		}

		replyTo := ""
		if m.Reference != nil {
			replyTo = m.Reference.MessageID
		}
		b.add(msg, m.ID, replyTo)
	}

	conv := b.build()
	if len(conv.Messages) == 0 {
		return emptyConversation(PlatformDiscord)
	}
	return conv
}

// discordDisplayName prefers the server nickname over the account handle.
func discordDisplayName(a discordAuthor) string {
	if a.Nickname != "" {
		return a.Nickname
	}
	return a.Name
}

func discordReactions(m discordMessage) []Reaction {
	if len(m.Reactions) == 0 {
		return nil
	}
	out := make([]Reaction, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		if r.Emoji.Name == "" || r.Count <= 0 {
			continue
		}
		// The exporter aggregates counts without reactor identity.
		out = append(out, Reaction{Emoji: r.Emoji.Name, Count: r.Count, Actor: "unknown"})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func discordMentions(mentions []discordAuthor) []string {
	var out []string
	for _, m := range mentions {
		if m.IsBot {
			continue
		}
		if name := discordDisplayName(m); name != "" {
			out = append(out, name)
		}
	}
	return out
}
