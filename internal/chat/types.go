// Package chat normalizes exported chat histories from multiple platforms
// into one canonical conversation model consumed by every downstream stage.
package chat

// Message types assigned during parsing.
const (
	TypeText    = "text"
	TypeMedia   = "media"
	TypeLink    = "link"
	TypeSticker = "sticker"
	TypeSystem  = "system"
	TypeCall    = "call"
)

// Supported platform identifiers.
const (
	PlatformWhatsApp  = "whatsapp"
	PlatformTelegram  = "telegram"
	PlatformInstagram = "instagram"
	PlatformDiscord   = "discord"
)

// Reaction is a single emoji reaction on a message.
// Actor is "unknown" when the platform does not expose per-reactor identity.
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
	Actor string `json:"actor"`
}

// UnifiedMessage is one normalized chat message.
// Index is the stable ordinal position after chronological sort.
// Timestamp is epoch milliseconds.
type UnifiedMessage struct {
	Index        int        `json:"index"`
	Sender       string     `json:"sender"`
	Content      string     `json:"content"`
	Timestamp    int64      `json:"timestamp"`
	Type         string     `json:"type"`
	Reactions    []Reaction `json:"reactions,omitempty"`
	HasMedia     bool       `json:"hasMedia"`
	HasLink      bool       `json:"hasLink"`
	IsUnsent     bool       `json:"isUnsent"`
	IsEdited     bool       `json:"isEdited"`
	ReplyToIndex *int       `json:"replyToIndex,omitempty"`
	Mentions     []string   `json:"mentions,omitempty"`
}

// Participant is a deduplicated conversation member.
// PlatformID is a stable identifier used only for dedup, never for display.
type Participant struct {
	Name       string `json:"name"`
	PlatformID string `json:"platformId,omitempty"`
}

// DateRange holds first/last message timestamps in epoch milliseconds.
type DateRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Metadata summarizes a parsed conversation.
type Metadata struct {
	TotalMessages int       `json:"totalMessages"`
	DateRange     DateRange `json:"dateRange"`
	IsGroup       bool      `json:"isGroup"`
	DurationDays  int       `json:"durationDays"`
}

// ParsedConversation is the canonical model produced by a platform adapter.
// Constructed once per import and immutable thereafter.
type ParsedConversation struct {
	Platform     string           `json:"platform"`
	Title        string           `json:"title"`
	Participants []Participant    `json:"participants"`
	Messages     []UnifiedMessage `json:"messages"`
	Metadata     Metadata         `json:"metadata"`
}
