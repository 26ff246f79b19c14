package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/db"
	"portfolio/internal/events"
	"portfolio/internal/guestbook"
	"portfolio/internal/logging"
	"portfolio/internal/router"
	"portfolio/internal/services"
	"portfolio/internal/stream"
	"portfolio/internal/utils"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "portfolio"})
	logger := logging.L()

	// Initialize Database
	conn, err := db.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	if err := db.Migrate(conn); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 事件总线：进程内广播，可选 Redis 跨实例转发
	bus := events.NewBus()
	if cfg.Events.Driver == "redis" {
		relay, err := events.NewRedisRelay(bus, cfg.Events.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start event relay")
		}
		if err := relay.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to subscribe event relay")
		}
		defer relay.Close()
	}

	cache, err := utils.NewPageCache(256)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create page cache")
	}

	streams := stream.NewHandler(bus, cfg.Guestbook)
	mailer := services.NewMailService(cfg.SMTP, cfg.Server.SiteURL, cfg.Server.TemplatesDir)

	deps := router.Deps{
		Config:    cfg,
		DB:        conn,
		Bus:       bus,
		Cache:     cache,
		Guestbook: guestbook.NewService(conn, bus, cache, mailer),
		Mailer:    mailer,
		Importer:  services.NewFeedImporter(conn, services.NewCrawlerService(), cache),
		Providers: services.NewOAuthProviders(cfg.OAuth, cfg.Server.SiteURL),
		Stream:    streams,
	}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logging.GinMiddleware(logger), gin.Recovery())

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(cfg.Server.SiteURL, "https://"),
	})
	r.Use(sessions.Sessions("portfolio_session", store))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	r.HTMLRender = loadTemplates(cfg.Server.TemplatesDir)

	// Static Assets
	r.Static("/static", "./web/static")

	router.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown 不会取消进行中的请求，SSE 连接需要主动关闭
	srv.RegisterOnShutdown(streams.Close)

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Str("events", cfg.Events.Driver).Msg("portfolio server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// views maps handler template names to files under views/.
var views = []string{
	"home.html",
	"error.html",
	"contact.html",
	"blog/list.html",
	"blog/detail.html",
	"guestbook/index.html",
	"auth/login.html",
	"admin/dashboard.html",
	"admin/posts.html",
	"admin/post_form.html",
	"admin/guestbook.html",
	"admin/contacts.html",
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	components, err := filepath.Glob(templatesDir + "/components/*.html")
	if err != nil {
		panic(err)
	}

	// Helper to assemble files
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(components)+1)
		files = append(files, layouts...)
		files = append(files, components...)
		files = append(files, view)
		return files
	}

	// FuncMap
	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"timeAgo":  utils.TimeAgo,
		"initials": utils.Initials,
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
		"urlquery": func(s string) string {
			return url.QueryEscape(s)
		},
		"date": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
	}

	for _, name := range views {
		r.AddFromFilesFuncs(name, funcMap, assemble(templatesDir+"/views/"+name)...)
	}

	return r
}
