package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Events    EventsConfig
	Guestbook GuestbookConfig
	SMTP      SMTPConfig
	OAuth     OAuthConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port          int
	SiteURL       string `mapstructure:"site_url"`
	SessionSecret string `mapstructure:"session_secret"`
	TemplatesDir  string `mapstructure:"templates_dir"`
}

type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	DSN             string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type EventsConfig struct {
	Driver string // memory, redis
	Redis  RedisConfig
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

type GuestbookConfig struct {
	KeepAlive    time.Duration `mapstructure:"keep_alive"`
	StreamBuffer int           `mapstructure:"stream_buffer"`
}

type SMTPConfig struct {
	Host  string
	Port  string
	User  string
	Pass  string
	From  string
	Owner string // receives contact form notifications
}

type OAuthConfig struct {
	Google OAuthProvider
	GitHub OAuthProvider
}

type OAuthProvider struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type AdminConfig struct {
	Emails []string
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c AdminConfig) IsAdminEmail(email string) bool {
	for _, e := range c.Emails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// Load reads .env (if present), then config.yaml and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// ADMIN_EMAILS arrives as a comma separated string from the environment.
	if raw := v.GetString("admin.emails"); raw != "" && len(cfg.Admin.Emails) <= 1 {
		cfg.Admin.Emails = strings.Split(raw, ",")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.site_url", "http://localhost:8080")
	v.SetDefault("server.session_secret", "secret_key_change_me")
	v.SetDefault("server.templates_dir", "./web/templates")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=portfolio port=5432 sslmode=disable")
	v.SetDefault("database.file_path", "./data/portfolio.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("events.driver", "memory")
	v.SetDefault("events.redis.address", "localhost:6379")
	v.SetDefault("events.redis.db", 0)
	v.SetDefault("events.redis.channel", "portfolio:guestbook")
	v.SetDefault("guestbook.keep_alive", 15*time.Second)
	v.SetDefault("guestbook.stream_buffer", 32)
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.site_url", "SITE_URL")
	v.BindEnv("server.session_secret", "SESSION_SECRET")
	v.BindEnv("server.templates_dir", "TEMPLATES_DIR")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.pretty", "LOG_PRETTY")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("events.redis.address", "REDIS_ADDR")
	v.BindEnv("events.redis.password", "REDIS_PASSWORD")
	v.BindEnv("events.redis.db", "REDIS_DB")
	v.BindEnv("events.redis.channel", "REDIS_CHANNEL")
	v.BindEnv("guestbook.keep_alive", "GUESTBOOK_KEEP_ALIVE")
	v.BindEnv("smtp.host", "SMTP_HOST")
	v.BindEnv("smtp.port", "SMTP_PORT")
	v.BindEnv("smtp.user", "SMTP_USER")
	v.BindEnv("smtp.pass", "SMTP_PASS")
	v.BindEnv("smtp.from", "SMTP_FROM")
	v.BindEnv("smtp.owner", "SITE_OWNER_EMAIL")
	v.BindEnv("oauth.google.client_id", "GOOGLE_CLIENT_ID")
	v.BindEnv("oauth.google.client_secret", "GOOGLE_CLIENT_SECRET")
	v.BindEnv("oauth.github.client_id", "GITHUB_CLIENT_ID")
	v.BindEnv("oauth.github.client_secret", "GITHUB_CLIENT_SECRET")
	v.BindEnv("admin.emails", "ADMIN_EMAILS")
}
