package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// minReplyRunes is the longest text still rejected as too short
const minReplyRunes = 5

// openingPhrase finds the first expected reply opening on the first line
var openingPhrase = regexp.MustCompile(`(?i)^[^\n]*?\b(I am here only to help|Hello|Hi|To book|You don't have)\b`)

// Sanitize cleans raw provider text. It drops leaked reasoning and any
// preamble before the reply proper, and reports false when nothing usable
// is left.
func Sanitize(raw string) (string, bool) {
	text := strings.TrimSpace(raw)

	if strings.Contains(text, "\n\n") && strings.Contains(strings.ToLower(text), "rule") {
		text = strings.TrimSpace(text[strings.LastIndex(text, "\n\n")+2:])
	}

	if loc := openingPhrase.FindStringSubmatchIndex(text); loc != nil {
		text = text[loc[2]:]
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= minReplyRunes {
		return "", false
	}
	return text, true
}
