package guestbook

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"collapses whitespace", "  hello \n\t  world  ", "hello world"},
		{"blank", " \n\t ", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeMessage(tt.in))
		})
	}
}

func TestSanitizeMessageTruncatesRunes(t *testing.T) {
	long := strings.Repeat("你", MaxMessageLength+20)
	got := SanitizeMessage(long)
	assert.Equal(t, MaxMessageLength, utf8.RuneCountInString(got))
}

func TestSanitizeMessageTrimsAfterTruncation(t *testing.T) {
	in := strings.Repeat("a", MaxMessageLength-1) + " b"
	got := SanitizeMessage(in)
	assert.Equal(t, strings.Repeat("a", MaxMessageLength-1), got)
}
