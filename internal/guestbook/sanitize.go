package guestbook

import "strings"

// MaxMessageLength is counted in runes.
const MaxMessageLength = 280

// SanitizeMessage collapses whitespace runs to a single space, trims the
// ends and truncates to MaxMessageLength runes.
func SanitizeMessage(s string) string {
	msg := strings.Join(strings.Fields(s), " ")
	runes := []rune(msg)
	if len(runes) > MaxMessageLength {
		msg = strings.TrimSpace(string(runes[:MaxMessageLength]))
	}
	return msg
}
