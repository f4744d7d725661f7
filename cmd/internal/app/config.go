package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	Env       string
	BaseURL   string
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	AutoMigrate bool

	// If true, /readyz returns 503 unless a database is configured and reachable.
	ReadinessRequireDB bool

	// SessionSecret keys the hash of every stored token. Required in production.
	SessionSecret string

	// PurgeInterval runs the expired token/session janitor. Zero disables it.
	PurgeInterval time.Duration

	StaticDir string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFrom        string
	SMTPFromName    string
	SMTPImplicitTLS bool
	// SMTPStartTLS upgrades the submission connection. Defaults on for port 587.
	SMTPStartTLS bool
	MailTimeout  time.Duration

	FFmpegPath        string
	FFmpegTimeout     time.Duration
	TranscribeURL     string
	TranscribeTimeout time.Duration
	UploadMaxBytes    int64
	UploadTempDir     string
}

// Production reports whether SCRIBE_ENV=production.
func (c Config) Production() bool { return strings.EqualFold(c.Env, "production") }

// LoadConfig loads .env (when present) and then Config from environment variables.
func LoadConfig() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:       EnvString("SCRIBE_ENV", "development"),
		BaseURL:   strings.TrimRight(EnvString("SCRIBE_BASE_URL", "http://localhost:8080"), "/"),
		HTTPAddr:  EnvString("SCRIBE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("SCRIBE_LOG_LEVEL", "info"),
		LogFormat: EnvString("SCRIBE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("SCRIBE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("SCRIBE_HTTP_READ_TIMEOUT", 60*time.Second),
		// Uploads wait for conversion plus transcription.
		WriteTimeout:    EnvDuration("SCRIBE_HTTP_WRITE_TIMEOUT", 200*time.Second),
		IdleTimeout:     EnvDuration("SCRIBE_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: EnvDuration("SCRIBE_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:  EnvInt("SCRIBE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("SCRIBE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("SCRIBE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("SCRIBE_DB_MIN_CONNS", 0),
		AutoMigrate: EnvBool("SCRIBE_AUTO_MIGRATE", false),

		ReadinessRequireDB: EnvBool("SCRIBE_READINESS_REQUIRE_DB", false),

		SessionSecret: EnvString("SCRIBE_SESSION_SECRET", ""),
		PurgeInterval: EnvDuration("SCRIBE_PURGE_INTERVAL", 0),
		StaticDir:     EnvString("SCRIBE_STATIC_DIR", ""),

		SMTPHost:        EnvString("SCRIBE_SMTP_HOST", ""),
		SMTPPort:        EnvInt("SCRIBE_SMTP_PORT", 587),
		SMTPUsername:    EnvString("SCRIBE_SMTP_USERNAME", ""),
		SMTPPassword:    EnvString("SCRIBE_SMTP_PASSWORD", ""),
		SMTPFrom:        EnvString("SCRIBE_SMTP_FROM", ""),
		SMTPFromName:    EnvString("SCRIBE_SMTP_FROM_NAME", "Scribe"),
		SMTPImplicitTLS: EnvBool("SCRIBE_SMTP_IMPLICIT_TLS", false),
		MailTimeout:     EnvDuration("SCRIBE_MAIL_TIMEOUT", 15*time.Second),

		FFmpegPath:        EnvString("SCRIBE_FFMPEG_PATH", "ffmpeg"),
		FFmpegTimeout:     EnvDuration("SCRIBE_FFMPEG_TIMEOUT", 60*time.Second),
		TranscribeURL:     EnvString("SCRIBE_TRANSCRIBE_URL", "http://127.0.0.1:8000"),
		TranscribeTimeout: EnvDuration("SCRIBE_TRANSCRIBE_TIMEOUT", 120*time.Second),
		UploadMaxBytes:    EnvInt64("SCRIBE_UPLOAD_MAX_BYTES", 25<<20),
		UploadTempDir:     EnvString("SCRIBE_UPLOAD_TEMP_DIR", ""),
	}

	cfg.SMTPStartTLS = EnvBool("SCRIBE_SMTP_STARTTLS", cfg.SMTPPort == 587 && !cfg.SMTPImplicitTLS)

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return Config{}, fmt.Errorf("config: SCRIBE_BASE_URL: %w", err)
	}
	if cfg.SMTPHost != "" && cfg.SMTPFrom == "" {
		return Config{}, errors.New("config: SCRIBE_SMTP_FROM is required when SCRIBE_SMTP_HOST is set")
	}
	if cfg.SMTPImplicitTLS && cfg.SMTPStartTLS {
		return Config{}, errors.New("config: SCRIBE_SMTP_IMPLICIT_TLS and SCRIBE_SMTP_STARTTLS are mutually exclusive")
	}
	return cfg, nil
}

// loadDotEnv loads .env into the process environment. Variables already set win.
func loadDotEnv() error {
	path := EnvString("SCRIBE_DOTENV", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}
