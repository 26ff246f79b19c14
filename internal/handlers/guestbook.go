package handlers

import (
	"errors"
	"net/http"

	"portfolio/internal/guestbook"
	"portfolio/internal/logging"
	"portfolio/internal/middleware"
	"portfolio/internal/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type GuestbookHandler struct {
	svc *guestbook.Service
}

func NewGuestbookHandler(svc *guestbook.Service) *GuestbookHandler {
	return &GuestbookHandler{svc: svc}
}

type createEntryRequest struct {
	Message          string `json:"message" form:"message"`
	ParentID         string `json:"parentId" form:"parentId"`
	ParentAuthorName string `json:"parentAuthorName" form:"parentAuthorName"`
	MentionedUserID  string `json:"mentionedUserId" form:"mentionedUserId"`
}

// Page GET /guestbook
func (h *GuestbookHandler) Page(c *gin.Context) {
	entries, err := h.svc.ListEntries(c.Request.Context())
	if err != nil {
		logger := logging.Ctx(c.Request.Context())
		logger.Error().Err(err).Msg("failed to list guestbook entries")
		RenderError(c, http.StatusInternalServerError, "The guestbook is unavailable right now.")
		return
	}

	Render(c, http.StatusOK, "guestbook/index.html", gin.H{
		"Title":   "Guestbook",
		"Entries": entries,
	})
}

// List GET /api/guestbook
func (h *GuestbookHandler) List(c *gin.Context) {
	entries, err := h.svc.ListEntries(c.Request.Context())
	if err != nil {
		logger := logging.Ctx(c.Request.Context())
		logger.Error().Err(err).Msg("failed to list guestbook entries")
		response.InternalError(c, "failed to load guestbook")
		return
	}
	response.Success(c, entries)
}

// Create POST /api/guestbook
func (h *GuestbookHandler) Create(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	user, err := h.svc.ResolveUser(ctx, sessionEmail(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	entry, err := h.svc.AddEntry(ctx, guestbook.AddEntryInput{
		Message:          req.Message,
		AuthorID:         user.ID,
		ParentID:         req.ParentID,
		ParentAuthorName: req.ParentAuthorName,
		MentionedUserID:  req.MentionedUserID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, entry)
}

// Like POST /api/guestbook/:id/like
func (h *GuestbookHandler) Like(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.svc.ResolveUser(ctx, sessionEmail(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	action, err := h.svc.ToggleLike(ctx, c.Param("id"), user)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "action": action})
}

func (h *GuestbookHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, guestbook.ErrEmptyMessage):
		response.BadRequest(c, "Message cannot be empty.")
	case errors.Is(err, guestbook.ErrUserNotFound):
		response.Unauthorized(c, "Please sign in again.")
	case errors.Is(err, guestbook.ErrEntryNotFound):
		response.NotFound(c, "Entry not found.")
	default:
		logger := logging.Ctx(c.Request.Context())
		logger.Error().Err(err).Msg("guestbook request failed")
		response.InternalError(c, "Something went wrong.")
	}
}

func sessionEmail(c *gin.Context) string {
	email, _ := sessions.Default(c).Get(middleware.SessionUserEmail).(string)
	return email
}
