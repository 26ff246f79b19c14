package handlers

import (
	"net/http"
	"net/mail"

	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/services"
	"portfolio/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionCaptchaAnswer = "captcha_answer"

// ContactNotifier forwards stored messages to the site owner.
type ContactNotifier interface {
	SendContactNotification(contact *models.Contact)
}

type ContactHandler struct {
	db       *gorm.DB
	captcha  *services.CaptchaService
	notifier ContactNotifier
}

func NewContactHandler(db *gorm.DB, captcha *services.CaptchaService, notifier ContactNotifier) *ContactHandler {
	return &ContactHandler{db: db, captcha: captcha, notifier: notifier}
}

type contactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Subject string `form:"subject"`
	Message string `form:"message"`
	Captcha string `form:"captcha"`
}

// Show GET /contact
func (h *ContactHandler) Show(c *gin.Context) {
	h.render(c, http.StatusOK, gin.H{})
}

// render issues a fresh captcha question with every form.
func (h *ContactHandler) render(c *gin.Context, code int, data gin.H) {
	question, answer := h.captcha.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set(sessionCaptchaAnswer, answer)
	session.Save()

	data["Title"] = "Contact"
	data["Question"] = question
	Render(c, code, "contact.html", data)
}

// Submit POST /contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var form contactForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, gin.H{"Error": "Invalid form."})
		return
	}

	session := sessions.Default(c)
	expected := session.Get(sessionCaptchaAnswer)
	session.Delete(sessionCaptchaAnswer)

	contact := models.Contact{
		Name:    truncate(utils.StripTags(form.Name), 100),
		Email:   truncate(utils.StripTags(form.Email), 200),
		Subject: truncate(utils.StripTags(form.Subject), 200),
		Message: truncate(utils.StripTags(form.Message), 5000),
	}

	if !h.captcha.Verify(expected, form.Captcha) {
		h.render(c, http.StatusBadRequest, gin.H{"Error": "Wrong answer, please try again.", "Form": contact})
		return
	}
	if contact.Name == "" || contact.Message == "" {
		h.render(c, http.StatusBadRequest, gin.H{"Error": "Name and message are required.", "Form": contact})
		return
	}
	if _, err := mail.ParseAddress(contact.Email); err != nil {
		h.render(c, http.StatusBadRequest, gin.H{"Error": "Please enter a valid email address.", "Form": contact})
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&contact).Error; err != nil {
		logger := logging.Ctx(c.Request.Context())
		logger.Error().Err(err).Msg("failed to store contact message")
		h.render(c, http.StatusInternalServerError, gin.H{"Error": "Could not send your message.", "Form": contact})
		return
	}

	if h.notifier != nil {
		h.notifier.SendContactNotification(&contact)
	}

	h.render(c, http.StatusOK, gin.H{"Success": true})
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
