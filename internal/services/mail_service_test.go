package services

import (
	"net/smtp"
	"os"
	"path/filepath"
	"testing"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	to   []string
	body string
}

func newTestMailer(t *testing.T) (*MailService, chan sentMail) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "email"), 0o755))
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "email", name), []byte(body), 0o644))
	}
	write("contact.html", `From {{.Name}} <{{.Email}}>: {{.Message}}`)
	write("guestbook_reply.html", `{{.Author}} replied: {{.Message}} {{.Link}}`)
	write("comment.html", `{{.ActiveUser}} on {{.PostTitle}}: {{.Content}}`)

	m := NewMailService(config.SMTPConfig{
		Host: "smtp.example.com", Port: "587", User: "u", Pass: "p",
		From: "site@example.com", Owner: "owner@example.com",
	}, "https://example.com/", dir)

	sent := make(chan sentMail, 4)
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		sent <- sentMail{addr: addr, to: to, body: string(msg)}
		return nil
	}
	return m, sent
}

func receive(t *testing.T, ch chan sentMail) sentMail {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no mail sent")
		return sentMail{}
	}
}

func TestMailDisabledWithoutSMTP(t *testing.T) {
	m := NewMailService(config.SMTPConfig{}, "", "")
	assert.False(t, m.Enabled)
}

func TestSendContactNotification(t *testing.T) {
	m, sent := newTestMailer(t)

	m.SendContactNotification(&models.Contact{Name: "Ann", Email: "ann@example.com", Subject: "hi", Message: "<b>hello</b>"})

	got := receive(t, sent)
	assert.Equal(t, "smtp.example.com:587", got.addr)
	assert.Equal(t, []string{"owner@example.com"}, got.to)
	assert.Contains(t, got.body, "Subject: [Portfolio] New message: hi")
	assert.Contains(t, got.body, "&lt;b&gt;hello&lt;/b&gt;")
}

func TestGuestbookReplyNotification(t *testing.T) {
	m, sent := newTestMailer(t)

	reply := &models.GuestbookEntry{ID: "r1", Message: "thanks!", User: models.User{Name: "Bob"}}
	m.GuestbookReply(&models.User{Name: "Ann", Email: "ann@example.com"}, reply)

	got := receive(t, sent)
	assert.Equal(t, []string{"ann@example.com"}, got.to)
	assert.Contains(t, got.body, "Bob replied: thanks! https://example.com/guestbook#r1")
}

func TestCommentNotificationSkipsOwnComments(t *testing.T) {
	m, sent := newTestMailer(t)

	post := &models.Post{Title: "Post", Slug: "post"}
	m.SendCommentNotification(post, &models.Comment{Content: "me", User: models.User{Email: "owner@example.com"}})
	m.SendCommentNotification(post, &models.Comment{Content: "nice", User: models.User{Name: "Bob", Email: "bob@example.com"}})

	got := receive(t, sent)
	assert.Contains(t, got.body, "Bob on Post: nice")
	assert.Empty(t, sent)
}
