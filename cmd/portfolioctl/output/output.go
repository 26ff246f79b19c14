package output

import (
	"fmt"
	"io"
	"strings"

	"portfolio/internal/events"
	"portfolio/internal/models"
	"portfolio/internal/utils"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")
	colorAccent  = lipgloss.Color("#EC4899")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	mentionStyle = lipgloss.NewStyle().Foreground(colorAccent)
	likeStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	replyStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorMuted)
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Print(successStyle.Render("✓ "))
	fmt.Printf(format+"\n", args...)
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Print(warningStyle.Render("⚠ "))
	fmt.Printf(format+"\n", args...)
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Print(errorStyle.Render("✗ "))
	fmt.Printf(format+"\n", args...)
}

// Muted prints a muted message
func Muted(format string, args ...interface{}) {
	fmt.Println(mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Entry renders one guestbook entry as a single block.
func Entry(e *models.GuestbookEntry) string {
	var b strings.Builder
	b.WriteString(primaryStyle.Render(e.User.Name))
	if e.MentionedUser != nil {
		b.WriteString(" " + mentionStyle.Render("@"+e.MentionedUser.Name))
	}
	b.WriteString(" " + mutedStyle.Render(utils.TimeAgo(e.CreatedAt)))
	if n := len(e.Likes); n > 0 {
		b.WriteString(" " + likeStyle.Render(fmt.Sprintf("♥ %d", n)))
	}
	b.WriteString("\n" + e.Message)
	return b.String()
}

// Guestbook writes the full list, replies indented under their root.
func Guestbook(w io.Writer, entries []models.GuestbookEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(no entries yet)"))
		return
	}
	for i := range entries {
		root := &entries[i]
		fmt.Fprintln(w, Entry(root))
		for j := range root.Replies {
			fmt.Fprintln(w, replyStyle.Render(Entry(&root.Replies[j])))
		}
		fmt.Fprintln(w)
	}
}

// Event describes a single stream event on one line.
func Event(ev *events.Event) string {
	switch ev.Type {
	case events.TypeGuestbookNew:
		return successStyle.Render("+ ") + fmt.Sprintf("%s signed the guestbook", ev.Entry.User.Name)
	case events.TypeGuestbookReply:
		return successStyle.Render("↳ ") + fmt.Sprintf("%s replied", ev.Reply.User.Name)
	case events.TypeGuestbookLike:
		mark := likeStyle.Render("♥ ")
		if ev.Action == events.ActionUnlike {
			mark = mutedStyle.Render("♡ ")
		}
		return mark + fmt.Sprintf("%s %sd %s", ev.UserEmail, ev.Action, ev.ID)
	}
	return mutedStyle.Render(ev.Type)
}
