package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"portfolio/internal/logging"
	"portfolio/internal/middleware"
	"portfolio/internal/models"
	"portfolio/internal/services"
	"portfolio/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	maxCommentLength = 2000
	blogListTTL      = 5 * time.Minute
)

// CommentNotifier is told about new blog comments.
type CommentNotifier interface {
	SendCommentNotification(post *models.Post, comment *models.Comment)
}

type BlogHandler struct {
	db       *gorm.DB
	cache    *utils.PageCache
	notifier CommentNotifier
}

func NewBlogHandler(db *gorm.DB, cache *utils.PageCache, notifier CommentNotifier) *BlogHandler {
	return &BlogHandler{db: db, cache: cache, notifier: notifier}
}

type blogPage struct {
	Posts      []models.Post
	Tags       []models.Tag
	TotalPages int
}

// List GET /blog
func (h *BlogHandler) List(c *gin.Context) {
	page := pageParam(c)
	tag := strings.ToLower(strings.TrimSpace(c.Query("tag")))
	key := fmt.Sprintf("%s?tag=%s&page=%d", services.BlogCacheKey, tag, page)

	v, err := h.cache.Fetch(key, blogListTTL, func() (interface{}, error) {
		return h.loadPage(c, tag, page)
	})
	if err != nil {
		logger := logging.Ctx(c.Request.Context())
		logger.Error().Err(err).Msg("failed to list posts")
		RenderError(c, http.StatusInternalServerError, "Could not load posts.")
		return
	}
	data := v.(*blogPage)

	Render(c, http.StatusOK, "blog/list.html", gin.H{
		"Title":       "Blog",
		"Posts":       data.Posts,
		"Tags":        data.Tags,
		"ActiveTag":   tag,
		"CurrentPage": page,
		"TotalPages":  data.TotalPages,
	})
}

func (h *BlogHandler) loadPage(c *gin.Context, tag string, page int) (*blogPage, error) {
	conn := h.db.WithContext(c.Request.Context())

	query := conn.Model(&models.Post{}).Where("posts.published = ?", true)
	if tag != "" {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", tag)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	var posts []models.Post
	err := query.Preload("Tags").
		Order("posts.created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	fillCommentCounts(conn, posts)

	var tags []models.Tag
	if err := conn.Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}

	return &blogPage{Posts: posts, Tags: tags, TotalPages: totalPages}, nil
}

func fillCommentCounts(conn *gorm.DB, posts []models.Post) {
	if len(posts) == 0 {
		return
	}

	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	// 批量查询评论数量
	type CountResult struct {
		PostID string
		Count  int
	}
	var results []CountResult
	conn.Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results)

	countMap := make(map[string]int, len(results))
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}
	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
}

func (h *BlogHandler) findPost(c *gin.Context) (*models.Post, error) {
	query := h.db.WithContext(c.Request.Context()).Where("slug = ?", c.Param("slug"))
	// 草稿只对管理员可见
	if user := middleware.CurrentUser(c); user == nil || !user.IsAdmin() {
		query = query.Where("published = ?", true)
	}

	var post models.Post
	if err := query.Take(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Detail GET /blog/:slug
func (h *BlogHandler) Detail(c *gin.Context) {
	post, err := h.findPost(c)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load the post.")
		return
	}

	conn := h.db.WithContext(c.Request.Context())
	conn.Model(post).Association("Tags").Find(&post.Tags)
	conn.Preload("User").Where("post_id = ?", post.ID).Order("created_at ASC").Find(&post.Comments)

	Render(c, http.StatusOK, "blog/detail.html", gin.H{
		"Title":       post.Title,
		"Post":        post,
		"Content":     utils.RenderMarkdown(post.Content),
		"Description": post.Summary,
	})
}

// CreateComment POST /blog/:slug/comments
func (h *BlogHandler) CreateComment(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, err := h.findPost(c)
	if err != nil {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}

	content := utils.StripTags(c.PostForm("content"))
	if r := []rune(content); len(r) > maxCommentLength {
		content = string(r[:maxCommentLength])
	}
	if content == "" {
		c.Redirect(http.StatusFound, "/blog/"+post.Slug)
		return
	}

	comment := models.Comment{PostID: post.ID, UserID: user.ID, Content: content}
	if err := h.db.WithContext(c.Request.Context()).Create(&comment).Error; err != nil {
		logger := logging.Ctx(c.Request.Context())
		logger.Error().Err(err).Msg("failed to create comment")
		RenderError(c, http.StatusInternalServerError, "Could not save the comment.")
		return
	}
	comment.User = *user

	// 评论数变化，列表缓存失效
	h.cache.Revalidate(services.BlogCacheKey)

	if h.notifier != nil {
		h.notifier.SendCommentNotification(post, &comment)
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/blog/%s#comment-%s", post.Slug, comment.ID))
}

// Home GET /
func (h *BlogHandler) Home(c *gin.Context) {
	v, err := h.cache.Fetch(services.BlogCacheKey+":home", blogListTTL, func() (interface{}, error) {
		var posts []models.Post
		err := h.db.WithContext(c.Request.Context()).
			Preload("Tags").
			Where("published = ?", true).
			Order("created_at DESC").
			Limit(3).
			Find(&posts).Error
		return posts, err
	})
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Something went wrong.")
		return
	}

	Render(c, http.StatusOK, "home.html", gin.H{
		"Title": "Home",
		"Posts": v.([]models.Post),
	})
}
