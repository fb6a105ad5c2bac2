// Package validation checks analyze-request fields before any parsing work
// happens. Failures map to 400 responses.
package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/chatscopehq/chatscope/internal/chat"
	"github.com/chatscopehq/chatscope/internal/sampling"
)

// Validation limits for request fields
const (
	MaxTitleLength  = 200 // Max conversation title length
	MaxTopicLength  = 120 // Max length of one briefing topic
	MaxTopics       = 20  // Max briefing topics
	MaxFlaggedSpans = 20  // Max briefing flagged date ranges
)

// ValidatePlatform checks that the platform names a known adapter.
func ValidatePlatform(platform string) error {
	if platform == "" {
		return fmt.Errorf("platform is required")
	}
	if !chat.SupportedPlatform(platform) {
		return fmt.Errorf("unsupported platform: %s", platform)
	}
	return nil
}

// ValidateExport checks that an export payload is present.
// Content-level problems are handled downstream by the adapters.
func ValidateExport(export string) error {
	if export == "" {
		return fmt.Errorf("export is required")
	}
	return nil
}

// ValidateTitle validates the optional conversation title.
func ValidateTitle(title string) error {
	if title == "" {
		return nil
	}
	if len(title) > MaxTitleLength {
		return fmt.Errorf("title must be at most %d characters", MaxTitleLength)
	}
	if !utf8.ValidString(title) {
		return fmt.Errorf("title must be valid UTF-8")
	}
	return nil
}

// ValidateBriefing validates the optional sampling briefing.
func ValidateBriefing(b *sampling.Briefing) error {
	if b == nil {
		return nil
	}
	if len(b.Topics) > MaxTopics {
		return fmt.Errorf("briefing may list at most %d topics", MaxTopics)
	}
	for _, topic := range b.Topics {
		if topic == "" {
			return fmt.Errorf("briefing topics must be non-empty")
		}
		if len(topic) > MaxTopicLength {
			return fmt.Errorf("briefing topics must be at most %d characters", MaxTopicLength)
		}
	}
	if len(b.FlaggedRanges) > MaxFlaggedSpans {
		return fmt.Errorf("briefing may flag at most %d date ranges", MaxFlaggedSpans)
	}
	for _, r := range b.FlaggedRanges {
		if r.Start > r.End {
			return fmt.Errorf("flagged range start must not be after end")
		}
	}
	return nil
}
