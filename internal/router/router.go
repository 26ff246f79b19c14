package router

import (
	"net/http"

	"portfolio/internal/config"
	"portfolio/internal/events"
	"portfolio/internal/guestbook"
	"portfolio/internal/handlers"
	"portfolio/internal/middleware"
	"portfolio/internal/services"
	"portfolio/internal/stream"
	"portfolio/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the process-wide services shared by the handlers.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Bus       *events.Bus
	Cache     *utils.PageCache
	Guestbook *guestbook.Service
	Mailer    *services.MailService
	Importer  *services.FeedImporter
	Providers map[string]*services.OAuthProvider
	// Stream is optional; main passes its own so shutdown can close it.
	Stream *stream.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(d.DB, d.Providers, d.Config.Admin)
	blogHandler := handlers.NewBlogHandler(d.DB, d.Cache, d.Mailer)
	contactHandler := handlers.NewContactHandler(d.DB, services.NewCaptchaService(), d.Mailer)
	guestbookHandler := handlers.NewGuestbookHandler(d.Guestbook)
	adminHandler := handlers.NewAdminHandler(d.DB, d.Guestbook, d.Importer, d.Cache)
	streamHandler := d.Stream
	if streamHandler == nil {
		streamHandler = stream.NewHandler(d.Bus, d.Config.Guestbook)
	}

	r.Use(middleware.LoadUser(d.DB))

	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "subscribers": d.Bus.Len()})
	})

	// 公共路由 (Public Routes)
	r.GET("/", blogHandler.Home)                    // 首页
	r.GET("/blog", blogHandler.List)                // 文章列表
	r.GET("/blog/:slug", blogHandler.Detail)        // 文章详情
	r.GET("/contact", contactHandler.Show)          // 联系表单
	r.POST("/contact", contactHandler.Submit)       // 提交联系表单
	r.GET("/guestbook", guestbookHandler.Page)      // 留言板页面
	r.GET("/login", authHandler.ShowLogin)          // 登录页面
	r.GET("/logout", authHandler.Logout)            // 退出登录
	r.GET("/auth/:provider/login", authHandler.Login)
	r.GET("/auth/:provider/callback", authHandler.Callback)

	// 留言板 API
	api := r.Group("/api/guestbook")
	{
		api.GET("", guestbookHandler.List)
		api.GET("/stream", streamHandler.Serve)

		authed := api.Group("")
		authed.Use(middleware.AuthRequired())
		authed.POST("", guestbookHandler.Create)
		authed.POST("/:id/like", guestbookHandler.Like)
	}

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/blog/:slug/comments", blogHandler.CreateComment) // 发表评论
	}

	// 管理后台 (Admin Routes)
	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("", adminHandler.Dashboard)
		admin.GET("/posts", adminHandler.Posts)
		admin.GET("/posts/new", adminHandler.NewPost)
		admin.POST("/posts", adminHandler.CreatePost)
		admin.GET("/posts/:id/edit", adminHandler.EditPost)
		admin.POST("/posts/:id", adminHandler.UpdatePost)
		admin.POST("/posts/:id/publish", adminHandler.TogglePublish)
		admin.DELETE("/posts/:id", adminHandler.DeletePost)
		admin.POST("/import", adminHandler.ImportFeed)

		admin.GET("/guestbook", adminHandler.Guestbook)
		admin.DELETE("/guestbook/:id", adminHandler.DeleteEntry)

		admin.GET("/contacts", adminHandler.Contacts)
		admin.POST("/contacts/:id/handled", adminHandler.MarkContactHandled)
		admin.DELETE("/contacts/:id", adminHandler.DeleteContact)

		admin.DELETE("/comments/:id", adminHandler.DeleteComment)
	}
}
