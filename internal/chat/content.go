package chat

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// isBareURL reports whether content is nothing but a single URL.
func isBareURL(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	loc := urlPattern.FindStringIndex(trimmed)
	return loc != nil && loc[0] == 0 && loc[1] == len(trimmed)
}

// containsURL reports whether content has a URL substring anywhere.
func containsURL(content string) bool {
	return urlPattern.MatchString(content)
}

// classifyText assigns the type for a plain text message: a bare URL is a
// link message, otherwise an embedded URL only sets hasLink.
func classifyText(content string) (msgType string, hasLink bool) {
	if isBareURL(content) {
		return TypeLink, true
	}
	return TypeText, containsURL(content)
}
