package handlers

import (
	"errors"
	"net/http"
	"strings"

	"portfolio/internal/guestbook"
	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/response"
	"portfolio/internal/services"
	"portfolio/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db        *gorm.DB
	guestbook *guestbook.Service
	importer  *services.FeedImporter
	cache     *utils.PageCache
}

func NewAdminHandler(db *gorm.DB, gb *guestbook.Service, importer *services.FeedImporter, cache *utils.PageCache) *AdminHandler {
	return &AdminHandler{db: db, guestbook: gb, importer: importer, cache: cache}
}

type dashboardStats struct {
	Posts           int64
	Drafts          int64
	Comments        int64
	Entries         int64
	Likes           int64
	Users           int64
	PendingContacts int64
}

// Dashboard GET /admin
func (h *AdminHandler) Dashboard(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())

	var stats dashboardStats
	conn.Model(&models.Post{}).Where("published = ?", true).Count(&stats.Posts)
	conn.Model(&models.Post{}).Where("published = ?", false).Count(&stats.Drafts)
	conn.Model(&models.Comment{}).Count(&stats.Comments)
	conn.Model(&models.GuestbookEntry{}).Count(&stats.Entries)
	conn.Model(&models.Like{}).Count(&stats.Likes)
	conn.Model(&models.User{}).Count(&stats.Users)
	conn.Model(&models.Contact{}).Where("handled = ?", false).Count(&stats.PendingContacts)

	Render(c, http.StatusOK, "admin/dashboard.html", gin.H{
		"Title": "Admin",
		"Stats": stats,
	})
}

// Posts GET /admin/posts
func (h *AdminHandler) Posts(c *gin.Context) {
	var posts []models.Post
	h.db.WithContext(c.Request.Context()).Preload("Tags").Order("created_at DESC").Find(&posts)
	fillCommentCounts(h.db.WithContext(c.Request.Context()), posts)

	Render(c, http.StatusOK, "admin/posts.html", gin.H{
		"Title": "Posts",
		"Posts": posts,
	})
}

// NewPost GET /admin/posts/new
func (h *AdminHandler) NewPost(c *gin.Context) {
	Render(c, http.StatusOK, "admin/post_form.html", gin.H{
		"Title": "New post",
		"Post":  &models.Post{},
	})
}

// EditPost GET /admin/posts/:id/edit
func (h *AdminHandler) EditPost(c *gin.Context) {
	var post models.Post
	if err := h.db.WithContext(c.Request.Context()).Preload("Tags").Where("id = ?", c.Param("id")).Take(&post).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}

	names := make([]string, len(post.Tags))
	for i, t := range post.Tags {
		names[i] = t.Name
	}
	Render(c, http.StatusOK, "admin/post_form.html", gin.H{
		"Title":    "Edit post",
		"Post":     &post,
		"TagNames": strings.Join(names, ", "),
	})
}

type postForm struct {
	Title      string `form:"title"`
	Slug       string `form:"slug"`
	Summary    string `form:"summary"`
	Content    string `form:"content"`
	CoverImage string `form:"cover_image"`
	Tags       string `form:"tags"`
	Published  bool   `form:"published"`
}

func (f *postForm) apply(post *models.Post) {
	post.Title = strings.TrimSpace(f.Title)
	post.Content = f.Content
	post.CoverImage = strings.TrimSpace(f.CoverImage)
	post.Published = f.Published
	post.Summary = strings.TrimSpace(f.Summary)
	if post.Summary == "" {
		post.Summary = utils.Excerpt(post.Content, 200)
	}
}

// CreatePost POST /admin/posts
func (h *AdminHandler) CreatePost(c *gin.Context) {
	h.savePost(c, &models.Post{})
}

// UpdatePost POST /admin/posts/:id
func (h *AdminHandler) UpdatePost(c *gin.Context) {
	var post models.Post
	if err := h.db.WithContext(c.Request.Context()).Where("id = ?", c.Param("id")).Take(&post).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}
	h.savePost(c, &post)
}

func (h *AdminHandler) savePost(c *gin.Context, post *models.Post) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		RenderError(c, http.StatusBadRequest, "Invalid form.")
		return
	}
	form.apply(post)
	if post.Title == "" || strings.TrimSpace(post.Content) == "" {
		Render(c, http.StatusBadRequest, "admin/post_form.html", gin.H{
			"Title":    "Edit post",
			"Post":     post,
			"TagNames": form.Tags,
			"Error":    "Title and content are required.",
		})
		return
	}

	conn := h.db.WithContext(c.Request.Context())
	err := conn.Transaction(func(tx *gorm.DB) error {
		slug := utils.Slugify(form.Slug)
		if slug == "" && post.Slug == "" {
			generated, err := services.UniqueSlug(tx, post.Title)
			if err != nil {
				return err
			}
			slug = generated
		}
		if slug != "" {
			post.Slug = slug
		}

		if err := tx.Save(post).Error; err != nil {
			return err
		}

		tags, err := services.FindOrCreateTags(tx, strings.Split(form.Tags, ","))
		if err != nil {
			return err
		}
		return tx.Model(post).Association("Tags").Replace(tags)
	})
	if err != nil {
		logger := logging.Ctx(c.Request.Context())
		logger.Error().Err(err).Msg("failed to save post")
		Render(c, http.StatusBadRequest, "admin/post_form.html", gin.H{
			"Title":    "Edit post",
			"Post":     post,
			"TagNames": form.Tags,
			"Error":    "Could not save the post. Is the slug already taken?",
		})
		return
	}

	h.cache.Revalidate(services.BlogCacheKey)
	c.Redirect(http.StatusFound, "/admin/posts")
}

// TogglePublish POST /admin/posts/:id/publish
func (h *AdminHandler) TogglePublish(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())

	var post models.Post
	if err := conn.Where("id = ?", c.Param("id")).Take(&post).Error; err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	post.Published = !post.Published
	if err := conn.Model(&post).Update("published", post.Published).Error; err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	h.cache.Revalidate(services.BlogCacheKey)

	// HTMX: 返回按钮新状态
	label := "Publish"
	if post.Published {
		label = "Unpublish"
	}
	c.String(http.StatusOK, label)
}

// DeletePost DELETE /admin/posts/:id
func (h *AdminHandler) DeletePost(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).Where("id = ?", c.Param("id")).Delete(&models.Post{})
	if res.Error != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	h.cache.Revalidate(services.BlogCacheKey)
	HtmxRefresh(c)
}

type importRequest struct {
	URL     string `form:"url" json:"url"`
	Tags    string `form:"tags" json:"tags"`
	Publish bool   `form:"publish" json:"publish"`
	Limit   int    `form:"limit" json:"limit"`
}

// ImportFeed POST /admin/import
func (h *AdminHandler) ImportFeed(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		response.BadRequest(c, "feed url is required")
		return
	}

	result, err := h.importer.Import(c.Request.Context(), strings.TrimSpace(req.URL), services.ImportOptions{
		Publish: req.Publish,
		Tags:    strings.Split(req.Tags, ","),
		Limit:   req.Limit,
	})
	if err != nil {
		logger := logging.Ctx(c.Request.Context())
		logger.Warn().Err(err).Str("url", req.URL).Msg("feed import failed")
		response.Error(c, http.StatusBadGateway, "IMPORT_FAILED", err.Error())
		return
	}
	response.Success(c, result)
}

// Guestbook GET /admin/guestbook
func (h *AdminHandler) Guestbook(c *gin.Context) {
	entries, err := h.guestbook.ListEntries(c.Request.Context())
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load the guestbook.")
		return
	}
	Render(c, http.StatusOK, "admin/guestbook.html", gin.H{
		"Title":   "Guestbook",
		"Entries": entries,
	})
}

// Contacts GET /admin/contacts
func (h *AdminHandler) Contacts(c *gin.Context) {
	var contacts []models.Contact
	h.db.WithContext(c.Request.Context()).Order("handled ASC, created_at DESC").Find(&contacts)

	Render(c, http.StatusOK, "admin/contacts.html", gin.H{
		"Title":    "Messages",
		"Contacts": contacts,
	})
}

// MarkContactHandled POST /admin/contacts/:id/handled
func (h *AdminHandler) MarkContactHandled(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).Model(&models.Contact{}).Where("id = ?", c.Param("id")).Update("handled", true)
	if res.Error != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	HtmxRefresh(c)
}

// DeleteContact DELETE /admin/contacts/:id
func (h *AdminHandler) DeleteContact(c *gin.Context) {
	h.deleteByID(c, &models.Contact{})
}

// DeleteComment DELETE /admin/comments/:id
func (h *AdminHandler) DeleteComment(c *gin.Context) {
	if h.deleteByID(c, &models.Comment{}) {
		h.cache.Revalidate(services.BlogCacheKey)
	}
}

func (h *AdminHandler) deleteByID(c *gin.Context, model interface{}) bool {
	res := h.db.WithContext(c.Request.Context()).Where("id = ?", c.Param("id")).Delete(model)
	switch {
	case res.Error != nil:
		c.Status(http.StatusInternalServerError)
		return false
	case res.RowsAffected == 0:
		c.Status(http.StatusNotFound)
		return false
	}
	HtmxRefresh(c)
	return true
}

// DeleteEntry DELETE /admin/guestbook/:id
func (h *AdminHandler) DeleteEntry(c *gin.Context) {
	err := h.guestbook.DeleteEntry(c.Request.Context(), c.Param("id"))
	if errors.Is(err, guestbook.ErrEntryNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	HtmxRefresh(c)
}
