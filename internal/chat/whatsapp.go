package chat

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
	"time"
)

// WhatsApp text exports come in two main dialects:
//
//	iOS:     [25.01.2024, 14:30:15] Alice: Hello
//	Android: 25/01/2024, 14:30 - Alice: Hello
//
// Lines that match neither header are continuations of the previous message.
// iOS exports sprinkle U+200E (LTR mark) before system lines and media
// markers, which is stripped before matching.
var (
	waIOSHeader     = regexp.MustCompile(`^\[(\d{1,2}[./]\d{1,2}[./]\d{2,4}),? (\d{1,2}:\d{2}(?::\d{2})?(?:\s?[AP]M)?)\] (.*)$`)
	waAndroidHeader = regexp.MustCompile(`^(\d{1,2}[./]\d{1,2}[./]\d{2,4}),? (\d{1,2}:\d{2}(?::\d{2})?(?:\s?[AP]M)?) - (.*)$`)
)

var waTimeLayouts = []string{
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2.1.06 15:04:05",
	"2.1.06 15:04",
	"2/1/06 15:04:05",
	"2/1/06 15:04",
	"2/1/06 3:04 PM",
	"2/1/2006 3:04 PM",
}

// waMediaMarkers are localized-enough placeholders WhatsApp substitutes for
// attachments when exporting without media.
var waMediaMarkers = []string{
	"<Media omitted>",
	"image omitted",
	"video omitted",
	"audio omitted",
	"GIF omitted",
	"document omitted",
	"Contact card omitted",
}

var waStickerMarker = "sticker omitted"

var waUnsentMarkers = []string{
	"This message was deleted",
	"You deleted this message",
}

var waCallMarkers = []string{
	"Missed voice call",
	"Missed video call",
	"Voice call",
	"Video call",
}

const waEditedSuffix = "<This message was edited>"

type whatsappAdapter struct{}

func (whatsappAdapter) parse(raw []byte) ParsedConversation {
	b := newBuilder(PlatformWhatsApp, "")

	type entry struct {
		ts      time.Time
		sender  string
		content string
		system  bool
	}
	var current *entry
	flush := func() {
		if current == nil {
			return
		}
		if !current.system {
			b.addParticipant(current.sender, "")
			b.add(waMessage(current.sender, current.content, current.ts), "", "")
		}
		current = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimPrefix(scanner.Text(), "‎")
		line = strings.ReplaceAll(line, "‎", "")

		date, clock, rest, ok := waMatchHeader(line)
		if !ok {
			// Continuation of the previous message body.
			if current != nil {
				current.content += "\n" + line
			}
			continue
		}

		ts, ok := waParseTime(date, clock)
		if !ok {
			continue
		}

		flush()
		sender, content, hasSender := strings.Cut(rest, ": ")
		if !hasSender {
			// No "Name: " separator means a system notice (pin/join/etc.).
			current = &entry{ts: ts, content: rest, system: true}
			continue
		}
		current = &entry{ts: ts, sender: strings.TrimSpace(sender), content: content}
	}
	flush()

	conv := b.build()
	if len(conv.Messages) == 0 {
		return emptyConversation(PlatformWhatsApp)
	}
	return conv
}

func waMatchHeader(line string) (date, clock, rest string, ok bool) {
	if m := waIOSHeader.FindStringSubmatch(line); m != nil {
		return m[1], m[2], m[3], true
	}
	if m := waAndroidHeader.FindStringSubmatch(line); m != nil {
		return m[1], m[2], m[3], true
	}
	return "", "", "", false
}

func waParseTime(date, clock string) (time.Time, bool) {
	combined := date + " " + strings.ReplaceAll(clock, " ", " ")
	for _, layout := range waTimeLayouts {
		if ts, err := time.ParseInLocation(layout, combined, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// waMessage classifies a single WhatsApp message from its placeholder
// markers and content.
func waMessage(sender, content string, ts time.Time) UnifiedMessage {
	msg := UnifiedMessage{
		Sender:    sender,
		Timestamp: ts.UnixMilli(),
	}

	trimmed := strings.TrimSpace(content)
	if strings.HasSuffix(trimmed, waEditedSuffix) {
		msg.IsEdited = true
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, waEditedSuffix))
	}

	for _, marker := range waUnsentMarkers {
		if trimmed == marker {
			msg.IsUnsent = true
			msg.Type = TypeText
			return msg
		}
	}
	for _, marker := range waCallMarkers {
		if trimmed == marker || strings.HasPrefix(trimmed, marker+".") {
			msg.Type = TypeCall
			return msg
		}
	}
	if strings.Contains(trimmed, waStickerMarker) {
		msg.Type = TypeSticker
		return msg
	}
	for _, marker := range waMediaMarkers {
		if strings.Contains(trimmed, marker) {
			msg.Type = TypeMedia
			msg.HasMedia = true
			return msg
		}
	}

	msg.Content = trimmed
	msg.Type, msg.HasLink = classifyText(trimmed)
	return msg
}
