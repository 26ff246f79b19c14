package handlers

import (
	"net/http/httptest"
	"testing"

	"portfolio/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/guestbook", safeNext("/guestbook"))
	assert.Equal(t, "/blog/a?x=1", safeNext("/blog/a?x=1"))
	assert.Equal(t, "/", safeNext(""))
	assert.Equal(t, "/", safeNext("https://evil.example"))
	assert.Equal(t, "/", safeNext("//evil.example"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "hi", truncate("hi", 4))
}

func TestPageParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for query, want := range map[string]int{"": 1, "?page=3": 3, "?page=-2": 1, "?page=x": 1} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/blog"+query, nil)
		assert.Equal(t, want, pageParam(c), query)
	}
}

func TestPostFormApply(t *testing.T) {
	f := postForm{Title: "  Hello ", Content: "Some **bold** words", CoverImage: " /c.png ", Published: true}
	var p models.Post
	f.apply(&p)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, "/c.png", p.CoverImage)
	assert.True(t, p.Published)
	assert.Equal(t, "Some bold words", p.Summary)
}
