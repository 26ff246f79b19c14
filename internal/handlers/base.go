package handlers

import (
	"net/http"

	"portfolio/internal/middleware"
	"portfolio/internal/utils"

	"github.com/gin-gonic/gin"
)

const pageSize = 10

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
		obj["IsAdmin"] = user.IsAdmin()
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// HtmxRedirect tells htmx to navigate on the client side.
func HtmxRedirect(c *gin.Context, path string) {
	c.Header("HX-Redirect", path)
	c.Status(http.StatusOK)
}

// HtmxRefresh reloads the current page after an htmx action.
func HtmxRefresh(c *gin.Context) {
	c.Header("HX-Refresh", "true")
	c.Status(http.StatusOK)
}

// RenderError renders the shared error page.
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message})
}

func pageParam(c *gin.Context) int {
	page := utils.StringToInt(c.Query("page"))
	if page < 1 {
		page = 1
	}
	return page
}
