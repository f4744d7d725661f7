// Package app wires the scribe server runtime: config, logging, stores, HTTP routes and the janitor.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"scribe/cmd/identity"
	authapi "scribe/cmd/internal/auth/api"
	"scribe/cmd/internal/auth/guard"
	"scribe/cmd/internal/auth/oauth"
	"scribe/cmd/internal/auth/session"
	"scribe/cmd/internal/auth/verification"
	"scribe/cmd/internal/mail"
	"scribe/cmd/internal/metrics"
	"scribe/cmd/internal/storage"
	"scribe/cmd/internal/transcribe"
	"scribe/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the scribe server runtime. It owns the DB pool and every service built on it.
type App struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	pool  *pgxpool.Pool
	sqlDB *sql.DB

	tokens   *verification.Service
	sessions *session.Service
	guard    *guard.Guard
	auth     *authapi.Handler
	uploads  *transcribe.Handler
}

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	transcriber transcribe.Transcriber
	mailer      mail.Sender
}

// WithTranscriber replaces the ffmpeg + HTTP API pipeline.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(o *options) { o.transcriber = t }
}

// WithMailSender replaces the sender chosen from SMTP config.
func WithMailSender(s mail.Sender) Option {
	return func(o *options) { o.mailer = s }
}

type stores struct {
	users       identity.Store
	tokens      verification.Store
	sessions    session.Store
	transcripts transcribe.Store
}

// New constructs a fully wired App. Without SCRIBE_DATABASE_URL every store is in memory.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}
	hasher, err := token.NewHasher(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("app: token hasher: %w", err)
	}
	if !hasher.Keyed() {
		log.Warn("security.token_hash.unkeyed", "hint", "set SCRIBE_SESSION_SECRET")
	}

	a := &App{cfg: cfg, log: log, metrics: metrics.New()}

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.wire(st, hasher, o); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.inmemory_store")
		return stores{
			users:       identity.NewMemoryStore(),
			tokens:      verification.NewMemoryStore(),
			sessions:    session.NewMemoryStore(),
			transcripts: transcribe.NewMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return stores{}, fmt.Errorf("app: db: %w", err)
	}
	a.pool = pool
	a.sqlDB = storage.OpenSQL(pool)

	if a.cfg.AutoMigrate {
		if err := storage.Migrate(ctx, a.sqlDB); err != nil {
			a.Close()
			return stores{}, err
		}
		a.log.Info("db.migrated")
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		a.Close()
		return stores{}, err
	}
	tokens, err := verification.NewPostgresStore(pool)
	if err != nil {
		a.Close()
		return stores{}, err
	}
	transcripts, err := transcribe.NewSQLStore(a.sqlDB)
	if err != nil {
		a.Close()
		return stores{}, err
	}

	a.log.Info("db.enabled.postgres_store")
	return stores{
		users:       users,
		tokens:      tokens,
		sessions:    session.NewPostgresStore(pool),
		transcripts: transcripts,
	}, nil
}

func (a *App) wire(st stores, hasher token.Hasher, o options) error {
	tokCfg, err := verification.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("app: token config: %w", err)
	}
	a.tokens, err = verification.NewService(st.tokens, hasher, tokCfg, verification.WithMetrics(a.metrics))
	if err != nil {
		return err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("app: session config: %w", err)
	}
	a.sessions = session.NewService(sessCfg, st.sessions, hasher, session.WithMetrics(a.metrics))

	gcfg := guard.DefaultConfig()
	gcfg.SecureCookie = a.cfg.Production()
	a.guard = guard.New(a.sessions, gcfg, a.log)

	sender := o.mailer
	if sender == nil {
		sender, err = a.newMailer()
		if err != nil {
			return err
		}
	}

	oauthCfg, err := oauth.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	providers := oauthCfg.Build(a.cfg.BaseURL)

	authCfg := authapi.LoadConfigFromEnv()
	authCfg.CookieSecure = a.cfg.Production()
	a.auth, err = authapi.NewHandler(a.log, authCfg, authapi.Deps{
		Users:    st.users,
		Tokens:   a.tokens,
		Sessions: a.sessions,
		Guard:    a.guard,
	},
		authapi.WithMailer(sender, mail.Links{BaseURL: a.cfg.BaseURL}),
		authapi.WithOAuth(providers),
		authapi.WithMetrics(a.metrics),
		authapi.WithTokenConfig(tokCfg),
	)
	if err != nil {
		return err
	}

	t := o.transcriber
	if t == nil {
		t, err = transcribe.NewPipeline(
			transcribe.FFmpegConverter{Path: a.cfg.FFmpegPath, Timeout: a.cfg.FFmpegTimeout},
			transcribe.APIClient{BaseURL: a.cfg.TranscribeURL, Timeout: a.cfg.TranscribeTimeout},
			transcribe.WithTempDir(a.cfg.UploadTempDir),
			transcribe.WithLogger(a.log),
			transcribe.WithMetrics(a.metrics),
		)
		if err != nil {
			return err
		}
	}
	svc, err := transcribe.NewService(t, st.transcripts, transcribe.WithServiceMetrics(a.metrics))
	if err != nil {
		return err
	}
	a.uploads = transcribe.NewHandler(svc, a.log, a.cfg.UploadMaxBytes)

	a.log.Info("app.wired",
		"oauth_providers", providers.Names(),
		"smtp", a.cfg.SMTPHost != "",
		"static_dir", a.cfg.StaticDir,
	)
	return nil
}

func (a *App) newMailer() (mail.Sender, error) {
	if a.cfg.SMTPHost == "" {
		a.log.Info("mail.disabled.log_sender")
		return mail.LogSender{Log: a.log}, nil
	}
	s, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:        a.cfg.SMTPHost,
		Port:        a.cfg.SMTPPort,
		Username:    a.cfg.SMTPUsername,
		Password:    a.cfg.SMTPPassword,
		From:        a.cfg.SMTPFrom,
		FromName:    a.cfg.SMTPFromName,
		ImplicitTLS: a.cfg.SMTPImplicitTLS,
		StartTLS:    a.cfg.SMTPStartTLS,
		Timeout:     a.cfg.MailTimeout,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the HTTP server and the janitor, and blocks until ctx is cancelled
// or the server fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 60*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 200*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		newJanitor(a.log, a.cfg.PurgeInterval, a.purgers()).run(janitorCtx)
	}()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "env", a.cfg.Env, "db_enabled", a.pool != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case runErr = <-errCh:
		a.log.Error("server.fail", "err", runErr)
	}

	stopJanitor()
	<-janitorDone

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		if runErr == nil {
			runErr = err
		}
	}

	a.Close()
	if runErr == nil {
		a.log.Info("server.stopped")
	}
	return runErr
}

func (a *App) purgers() map[string]Purger {
	return map[string]Purger{
		"verification_tokens": a.tokens,
		"sessions":            a.sessions,
	}
}

// Purge deletes expired verification tokens and sessions once.
func (a *App) Purge(ctx context.Context) (tokens, sessions int64, err error) {
	tokens, err = a.tokens.PurgeExpired(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("purge tokens: %w", err)
	}
	sessions, err = a.sessions.PurgeExpired(ctx)
	if err != nil {
		return tokens, 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tokens, sessions, nil
}

// Close releases the DB pool. It is safe to call more than once.
func (a *App) Close() {
	if a.sqlDB != nil {
		if err := a.sqlDB.Close(); err != nil {
			a.log.Warn("db.sql.close.fail", "err", err)
		}
		a.sqlDB = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

// Migrate applies the embedded migrations against cfg.DatabaseURL.
func Migrate(ctx context.Context, cfg Config, log *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate: SCRIBE_DATABASE_URL is not set")
	}
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("migrate: db: %w", err)
	}
	defer pool.Close()

	db := storage.OpenSQL(pool)
	defer func() { _ = db.Close() }()

	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("db.migrated")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
