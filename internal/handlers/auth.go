package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"sort"
	"strings"

	"portfolio/internal/config"
	"portfolio/internal/logging"
	"portfolio/internal/middleware"
	"portfolio/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	sessionOAuthState = "oauth_state"
	sessionOAuthNext  = "oauth_next"
)

type AuthHandler struct {
	db        *gorm.DB
	providers map[string]*services.OAuthProvider
	admin     config.AdminConfig
}

func NewAuthHandler(db *gorm.DB, providers map[string]*services.OAuthProvider, admin config.AdminConfig) *AuthHandler {
	return &AuthHandler{db: db, providers: providers, admin: admin}
}

// generateStateToken 生成随机 state token
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// safeNext only allows local paths as post-login redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// ShowLogin GET /login
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	Render(c, http.StatusOK, "auth/login.html", gin.H{
		"Title":     "Sign in",
		"Providers": names,
		"Next":      safeNext(c.Query("next")),
	})
}

// Login GET /auth/:provider/login
func (h *AuthHandler) Login(c *gin.Context) {
	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		RenderError(c, http.StatusNotFound, "Unknown login provider.")
		return
	}

	state, err := generateStateToken()
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not start login.")
		return
	}

	// 将 state 存储到 session 中,用于验证回调
	session := sessions.Default(c)
	session.Set(sessionOAuthState, state)
	session.Set(sessionOAuthNext, safeNext(c.Query("next")))
	session.Save()

	c.Redirect(http.StatusTemporaryRedirect, provider.Config.AuthCodeURL(state))
}

// Callback GET /auth/:provider/callback
func (h *AuthHandler) Callback(c *gin.Context) {
	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		RenderError(c, http.StatusNotFound, "Unknown login provider.")
		return
	}

	session := sessions.Default(c)
	savedState, _ := session.Get(sessionOAuthState).(string)
	next, _ := session.Get(sessionOAuthNext).(string)
	session.Delete(sessionOAuthState)
	session.Delete(sessionOAuthNext)
	session.Save()

	if savedState == "" || c.Query("state") != savedState {
		RenderError(c, http.StatusBadRequest, "Invalid login state, please try again.")
		return
	}
	code := c.Query("code")
	if code == "" {
		RenderError(c, http.StatusBadRequest, "Login was cancelled.")
		return
	}

	ctx := c.Request.Context()
	logger := logging.Ctx(ctx)

	profile, err := provider.Exchange(ctx, code)
	if errors.Is(err, services.ErrUnverifiedEmail) {
		RenderError(c, http.StatusBadRequest, "Your account has no verified email address.")
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("provider", provider.Name).Msg("oauth exchange failed")
		RenderError(c, http.StatusBadGateway, "Could not reach the login provider.")
		return
	}

	user, err := services.UpsertOAuthUser(ctx, h.db, provider.Name, profile, h.admin)
	if err != nil {
		logger.Error().Err(err).Msg("failed to store oauth user")
		RenderError(c, http.StatusInternalServerError, "Could not sign you in.")
		return
	}

	session.Set(middleware.SessionUserEmail, user.Email)
	session.Save()

	c.Redirect(http.StatusFound, safeNext(next))
}

// Logout GET /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}
