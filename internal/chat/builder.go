package chat

import "sort"

// pending is a message the adapter has accepted but not yet indexed.
// sourceID/replyToID carry the platform's own message-ID scheme until the
// final chronological order is known.
type pending struct {
	msg       UnifiedMessage
	sourceID  string
	replyToID string
}

// builder accumulates adapter output and produces the canonical conversation.
type builder struct {
	platform     string
	title        string
	msgs         []pending
	participants []Participant
	byID         map[string]int // platformID -> participants index
	byName       map[string]int // display name -> participants index (no platformID)
}

func newBuilder(platform, title string) *builder {
	return &builder{
		platform: platform,
		title:    title,
		byID:     make(map[string]int),
		byName:   make(map[string]int),
	}
}

// addParticipant registers a conversation member, deduplicating by stable
// platform ID when available and by display name otherwise. A later sighting
// with a platform ID may upgrade a name-only entry.
func (b *builder) addParticipant(name, platformID string) {
	if name == "" {
		return
	}
	if platformID != "" {
		if i, ok := b.byID[platformID]; ok {
			// Prefer a display name over an earlier handle-looking one.
			if b.participants[i].Name == "" {
				b.participants[i].Name = name
			}
			return
		}
		if i, ok := b.byName[name]; ok && b.participants[i].PlatformID == "" {
			b.participants[i].PlatformID = platformID
			b.byID[platformID] = i
			return
		}
		b.participants = append(b.participants, Participant{Name: name, PlatformID: platformID})
		b.byID[platformID] = len(b.participants) - 1
		b.byName[name] = len(b.participants) - 1
		return
	}
	if _, ok := b.byName[name]; ok {
		return
	}
	b.participants = append(b.participants, Participant{Name: name})
	b.byName[name] = len(b.participants) - 1
}

// add appends a message in source order. sourceID and replyToID may be empty
// when the platform has no message-ID scheme.
func (b *builder) add(msg UnifiedMessage, sourceID, replyToID string) {
	b.msgs = append(b.msgs, pending{msg: msg, sourceID: sourceID, replyToID: replyToID})
}

// build sorts chronologically (stable, so timestamp ties keep source order),
// assigns indices, resolves reply references to canonical indices, and
// computes metadata.
func (b *builder) build() ParsedConversation {
	sort.SliceStable(b.msgs, func(i, j int) bool {
		return b.msgs[i].msg.Timestamp < b.msgs[j].msg.Timestamp
	})

	indexByID := make(map[string]int, len(b.msgs))
	messages := make([]UnifiedMessage, len(b.msgs))
	for i := range b.msgs {
		b.msgs[i].msg.Index = i
		messages[i] = b.msgs[i].msg
		if id := b.msgs[i].sourceID; id != "" {
			indexByID[id] = i
		}
	}
	for i := range b.msgs {
		if ref := b.msgs[i].replyToID; ref != "" {
			if target, ok := indexByID[ref]; ok && target != i {
				t := target
				messages[i].ReplyToIndex = &t
			}
		}
	}

	participants := b.participants
	if participants == nil {
		participants = []Participant{}
	}

	return ParsedConversation{
		Platform:     b.platform,
		Title:        b.title,
		Participants: participants,
		Messages:     messages,
		Metadata:     buildMetadata(messages, len(participants)),
	}
}

func buildMetadata(messages []UnifiedMessage, participantCount int) Metadata {
	meta := Metadata{
		TotalMessages: len(messages),
		IsGroup:       participantCount > 2,
		DurationDays:  0,
	}
	if len(messages) == 0 {
		return meta
	}
	meta.DateRange = DateRange{
		Start: messages[0].Timestamp,
		End:   messages[len(messages)-1].Timestamp,
	}
	const dayMs = 24 * 60 * 60 * 1000
	span := meta.DateRange.End - meta.DateRange.Start
	days := int((span + dayMs - 1) / dayMs)
	if days < 1 {
		days = 1
	}
	meta.DurationDays = days
	return meta
}

// emptyConversation is the uniform result for malformed or empty input.
func emptyConversation(platform string) ParsedConversation {
	return ParsedConversation{
		Platform:     platform,
		Participants: []Participant{},
		Messages:     []UnifiedMessage{},
	}
}
