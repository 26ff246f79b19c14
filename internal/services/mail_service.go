package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"path/filepath"
	"strings"

	"portfolio/internal/config"
	"portfolio/internal/logging"
	"portfolio/internal/models"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type MailService struct {
	cfg          config.SMTPConfig
	siteURL      string
	templatesDir string
	Enabled      bool

	send sendFunc
}

func NewMailService(cfg config.SMTPConfig, siteURL, templatesDir string) *MailService {
	enabled := cfg.Host != "" && cfg.Port != "" && cfg.User != "" && cfg.Pass != "" && cfg.From != ""
	if !enabled {
		logger := logging.L()
		logger.Warn().Msg("MailService disabled: missing SMTP settings")
	}

	return &MailService{
		cfg:          cfg,
		siteURL:      strings.TrimRight(siteURL, "/"),
		templatesDir: templatesDir,
		Enabled:      enabled,
		send:         smtp.SendMail,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		logger := logging.L()
		auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
		addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: Portfolio <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.cfg.From, subject, mime, body))

		if err := s.send(addr, auth, s.cfg.From, to, msg); err != nil {
			logger.Error().Err(err).Strs("to", to).Msg("failed to send email")
			return
		}
		logger.Info().Strs("to", to).Str("subject", subject).Msg("email sent")
	}()
}

func (s *MailService) parseTemplate(templateName string, data interface{}) (string, error) {
	path := filepath.Join(s.templatesDir, "email", templateName)
	t, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

// SendContactNotification forwards a contact form message to the site owner.
func (s *MailService) SendContactNotification(contact *models.Contact) {
	if s.cfg.Owner == "" {
		return
	}
	body, err := s.parseTemplate("contact.html", map[string]string{
		"Name":    contact.Name,
		"Email":   contact.Email,
		"Subject": contact.Subject,
		"Message": contact.Message,
		"Link":    s.siteURL + "/admin/contacts",
	})
	if err != nil {
		logger := logging.L()
		logger.Error().Err(err).Msg("error rendering contact email")
		return
	}
	s.sendAsync([]string{s.cfg.Owner}, "[Portfolio] New message: "+contact.Subject, body)
}

// GuestbookReply tells an entry's author that someone replied.
func (s *MailService) GuestbookReply(recipient *models.User, reply *models.GuestbookEntry) {
	if recipient == nil || recipient.Email == "" {
		return
	}
	body, err := s.parseTemplate("guestbook_reply.html", map[string]string{
		"Recipient": recipient.Name,
		"Author":    reply.User.Name,
		"Message":   reply.Message,
		"Link":      s.siteURL + "/guestbook#" + reply.ID,
	})
	if err != nil {
		logger := logging.L()
		logger.Error().Err(err).Msg("error rendering guestbook reply email")
		return
	}
	s.sendAsync([]string{recipient.Email}, reply.User.Name+" replied to you in the guestbook", body)
}

// SendCommentNotification tells the site owner about a new blog comment.
func (s *MailService) SendCommentNotification(post *models.Post, comment *models.Comment) {
	if s.cfg.Owner == "" || comment.User.Email == s.cfg.Owner {
		return
	}
	body, err := s.parseTemplate("comment.html", map[string]string{
		"ActiveUser": comment.User.Name,
		"PostTitle":  post.Title,
		"Content":    comment.Content,
		"PostLink":   s.siteURL + "/blog/" + post.Slug,
	})
	if err != nil {
		logger := logging.L()
		logger.Error().Err(err).Msg("error rendering comment email")
		return
	}
	s.sendAsync([]string{s.cfg.Owner}, comment.User.Name+" commented on "+post.Title, body)
}
