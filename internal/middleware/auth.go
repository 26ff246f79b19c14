package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	CheckUserKey = "user"
	// SessionUserEmail is the session key written at login.
	SessionUserEmail = "user_email"
)

// CurrentUser returns the user loaded by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// LoadUser resolves the session email to a user and stores it in the context.
func LoadUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		email, _ := session.Get(SessionUserEmail).(string)

		if email != "" {
			var user models.User
			if err := db.WithContext(c.Request.Context()).Where("email = ?", email).Take(&user).Error; err == nil {
				c.Set(CheckUserKey, &user)
				c.Set(logging.FieldUserEmail, user.Email)
			} else {
				// 用户已被删除，清理会话
				session.Delete(SessionUserEmail)
				session.Save()
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in. API requests get a JSON 401,
// pages are redirected to /login.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			if isAPI(c) {
				response.Unauthorized(c, "login required")
				return
			}
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			if isAPI(c) {
				response.Forbidden(c, "admin only")
				return
			}
			c.String(http.StatusForbidden, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}
