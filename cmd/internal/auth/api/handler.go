package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scribe/cmd/identity"
	"scribe/cmd/internal/auth/guard"
	"scribe/cmd/internal/auth/oauth"
	"scribe/cmd/internal/auth/session"
	"scribe/cmd/internal/auth/verification"
	"scribe/cmd/internal/httpx"
	"scribe/cmd/internal/mail"
	"scribe/cmd/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const (
	msgSignupSent       = "Verification email sent. Please check your inbox."
	msgAlreadyPending   = "Verification email already sent. Please check your inbox."
	msgEmailInUse       = "Email already in use"
	msgResendGeneric    = "If the account is awaiting verification, a new email has been sent."
	msgEmailVerified    = "Email verified successfully"
	msgLoginSent        = "Login email sent. Please check your inbox."
	msgNotVerified      = "Email not verified. Please verify your email first."
	msgLoginSuccessful  = "Login successful"
	msgLogoutSuccessful = "Logout successful"
)

// Deps are the services the auth endpoints drive.
type Deps struct {
	Users    identity.Store
	Tokens   *verification.Service
	Sessions *session.Service
	Guard    *guard.Guard
}

// Handler wires HTTP auth endpoints to the identity, token and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	tokens   *verification.Service
	tokenCfg verification.Config
	sessions *session.Service
	guard    *guard.Guard

	mailer   mail.Sender
	links    mail.Links
	oauth    *oauth.Registry
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMailer overrides the default log-only sender.
func WithMailer(sender mail.Sender, links mail.Links) HandlerOption {
	return func(h *Handler) {
		if h == nil || sender == nil {
			return
		}
		h.mailer = sender
		h.links = links
	}
}

// WithOAuth enables /oauth/{provider}/... for the registry's providers.
func WithOAuth(reg *oauth.Registry) HandlerOption {
	return func(h *Handler) {
		if h == nil {
			return
		}
		h.oauth = reg
	}
}

func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil {
			return
		}
		h.metrics = m
	}
}

// WithTokenConfig tells the handler which TTLs to quote in outgoing mail.
func WithTokenConfig(cfg verification.Config) HandlerOption {
	return func(h *Handler) {
		if h == nil {
			return
		}
		h.tokenCfg = cfg
	}
}

// WithClock overrides the time source used for verification stamps (tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, deps Deps, opts ...HandlerOption) (*Handler, error) {
	if deps.Users == nil || deps.Tokens == nil || deps.Sessions == nil || deps.Guard == nil {
		return nil, errors.New("auth: missing dependency")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg.withDefaults(),
		users:    deps.Users,
		tokens:   deps.Tokens,
		tokenCfg: verification.DefaultConfig(),
		sessions: deps.Sessions,
		guard:    deps.Guard,
		mailer:   mail.LogSender{Log: log},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto r.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}
	r.Post("/signup", h.handleSignup)
	r.Get("/verify-email", h.handleVerifyEmail)
	r.Post("/verify-email/resend", h.handleResend)
	r.Post("/login", h.handleLogin)
	r.Get("/verify-login", h.handleVerifyLogin)
	r.Post("/logout", h.handleLogout)
	r.With(h.guard.RequireSession).Get("/me", h.handleMe)

	r.Get("/oauth/{provider}/start", h.handleOAuthStart)
	r.Get("/oauth/{provider}/callback", h.handleOAuthCallback)
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, h.log, "auth.signup", httpx.Validation("Invalid request body"))
		return
	}
	if !h.requireEmail(w, "auth.signup", &req, &req.Email) {
		return
	}
	email := req.Email

	ctx := r.Context()
	existing, err := h.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		h.rejectExisting(w, existing)
		return
	case !identity.IsNotFound(err):
		httpx.WriteError(w, h.log, "auth.signup.lookup.fail", err)
		return
	}

	user, err := h.users.CreateUser(ctx, identity.CreateUserInput{Email: email, Name: req.Name, Now: h.now()})
	if err != nil {
		if identity.IsConflict(err) {
			// Lost a race with a concurrent sign-up for the same address.
			if existing, lerr := h.users.GetByEmail(ctx, email); lerr == nil {
				h.rejectExisting(w, existing)
				return
			}
			httpx.WriteError(w, h.log, "auth.signup", httpx.Conflict(msgEmailInUse))
			return
		}
		if identity.IsInvalidInput(err) {
			httpx.WriteError(w, h.log, "auth.signup", httpx.Validation("Invalid email"))
			return
		}
		httpx.WriteError(w, h.log, "auth.signup.create.fail", err)
		return
	}

	if err := h.sendVerification(ctx, user); err != nil {
		httpx.WriteError(w, h.log, "auth.signup.send_mail.fail", err)
		return
	}

	h.log.Info("auth.signup.ok", "user_id", user.ID, "email", maskEmail(email), "ip", clientIP(r, h.cfg.TrustProxy))
	httpx.WriteJSON(w, http.StatusCreated, signupResponse{Message: msgSignupSent, UserID: user.ID})
}

func (h *Handler) rejectExisting(w http.ResponseWriter, u identity.User) {
	if u.Verified() {
		httpx.WriteError(w, h.log, "auth.signup", httpx.Conflict(msgEmailInUse))
		return
	}
	httpx.WriteError(w, h.log, "auth.signup", httpx.Conflict(msgAlreadyPending))
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, h.log, "auth.resend", httpx.Validation("Invalid request body"))
		return
	}
	if !h.requireEmail(w, "auth.resend", &req, &req.Email) {
		return
	}
	email := req.Email

	ctx := r.Context()
	user, err := h.users.GetByEmail(ctx, email)
	switch {
	case identity.IsNotFound(err):
	case err != nil:
		httpx.WriteError(w, h.log, "auth.resend.lookup.fail", err)
		return
	case !user.Verified():
		if err := h.sendVerification(ctx, user); err != nil {
			// The response stays generic; the failure is only visible in logs.
			h.log.Error("auth.resend.send_mail.fail", "user_id", user.ID, "err", err)
		}
	}
	httpx.WriteMessage(w, http.StatusOK, msgResendGeneric)
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.requireToken(w, r, "auth.verify_email")
	if !ok {
		return
	}

	ctx := r.Context()
	email, err := h.tokens.Consume(ctx, tok, verification.PurposeVerifyEmail)
	if err != nil {
		h.writeTokenError(w, "auth.verify_email", err)
		return
	}

	user, err := h.users.MarkEmailVerified(ctx, email, h.now())
	if err != nil {
		if identity.IsNotFound(err) {
			httpx.WriteError(w, h.log, "auth.verify_email", httpx.NotFound("User not found"))
			return
		}
		httpx.WriteError(w, h.log, "auth.verify_email.mark.fail", err)
		return
	}

	h.log.Info("auth.verify_email.ok", "user_id", user.ID)
	httpx.WriteMessage(w, http.StatusOK, msgEmailVerified)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, h.log, "auth.login", httpx.Validation("Invalid request body"))
		return
	}
	if !h.requireEmail(w, "auth.login", &req, &req.Email) {
		return
	}
	email := req.Email

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		if !identity.IsNotFound(err) {
			httpx.WriteError(w, h.log, "auth.login.lookup.fail", err)
			return
		}
		h.log.Info("auth.login.unknown_email", "email", maskEmail(email), "ip", ip)
		if h.cfg.RevealUnknownEmail {
			httpx.WriteError(w, h.log, "auth.login", httpx.NotFound("User not found"))
			return
		}
		httpx.WriteMessage(w, http.StatusOK, msgLoginSent)
		return
	}
	if !user.Verified() {
		httpx.WriteError(w, h.log, "auth.login", httpx.Forbidden(msgNotVerified))
		return
	}

	issued, err := h.tokens.Issue(ctx, user.Email, verification.PurposeLogin)
	if err != nil {
		httpx.WriteError(w, h.log, "auth.login.issue.fail", err)
		return
	}
	msg, err := mail.LoginMessage(user.Email, h.links.Login(issued.Token), h.tokenCfg.TTL(verification.PurposeLogin))
	if err == nil {
		err = h.deliver(ctx, msg)
	}
	if err != nil {
		h.revoke(ctx, issued.Token)
		httpx.WriteError(w, h.log, "auth.login.send_mail.fail", httpx.Upstream("Failed to send login email", err))
		return
	}

	h.log.Info("auth.login.link_sent", "user_id", user.ID, "ip", ip)
	httpx.WriteMessage(w, http.StatusOK, msgLoginSent)
}

func (h *Handler) handleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.requireToken(w, r, "auth.verify_login")
	if !ok {
		return
	}

	ctx := r.Context()
	email, err := h.tokens.Consume(ctx, tok, verification.PurposeLogin)
	if err != nil {
		h.writeTokenError(w, "auth.verify_login", err)
		return
	}

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			httpx.WriteError(w, h.log, "auth.verify_login", httpx.NotFound("User not found"))
			return
		}
		httpx.WriteError(w, h.log, "auth.verify_login.lookup.fail", err)
		return
	}

	if !h.startSession(w, r, user, "auth.verify_login") {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{Message: msgLoginSuccessful, User: toUserResponse(user)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.guard.Token(r)
	if !ok {
		httpx.WriteError(w, h.log, "auth.logout", httpx.Unauthorized("Unauthorized"))
		return
	}
	if err := h.sessions.Destroy(r.Context(), tok); err != nil {
		httpx.WriteError(w, h.log, "auth.logout.destroy.fail", err)
		return
	}
	h.guard.ClearCookie(w)
	httpx.WriteMessage(w, http.StatusOK, msgLogoutSuccessful)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, "auth.me")
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{User: toUserResponse(user)})
}

// ---- helpers ----

// requireEmail normalizes *email in place and validates req against its struct tags.
func (h *Handler) requireEmail(w http.ResponseWriter, event string, req any, email *string) bool {
	*email = identity.NormalizeEmail(*email)
	if err := h.validate.Struct(req); err != nil {
		httpx.WriteError(w, h.log, event, httpx.Validation(validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "required" {
		return "Email is required"
	}
	return "Invalid email"
}

func (h *Handler) requireToken(w http.ResponseWriter, r *http.Request, event string) (string, bool) {
	tok := strings.TrimSpace(r.URL.Query().Get("token"))
	if tok == "" {
		httpx.WriteError(w, h.log, event, httpx.Validation("Token is required"))
		return "", false
	}
	return tok, true
}

func (h *Handler) writeTokenError(w http.ResponseWriter, event string, err error) {
	switch {
	case errors.Is(err, verification.ErrTokenExpired):
		httpx.WriteError(w, h.log, event, httpx.Token("Token expired"))
	case errors.Is(err, verification.ErrInvalidToken):
		httpx.WriteError(w, h.log, event, httpx.Token("Invalid token"))
	default:
		httpx.WriteError(w, h.log, event+".consume.fail", err)
	}
}

// sendVerification issues a verify-email token and mails it. The token is
// revoked when delivery fails so no unreachable token lingers.
func (h *Handler) sendVerification(ctx context.Context, user identity.User) error {
	issued, err := h.tokens.Issue(ctx, user.Email, verification.PurposeVerifyEmail)
	if err != nil {
		return err
	}
	msg, err := mail.VerificationMessage(user.Email, user.Name, h.links.VerifyEmail(issued.Token), h.tokenCfg.TTL(verification.PurposeVerifyEmail))
	if err == nil {
		err = h.deliver(ctx, msg)
	}
	if err != nil {
		h.revoke(ctx, issued.Token)
		return httpx.Upstream("Failed to send verification email", err)
	}
	return nil
}

func (h *Handler) deliver(ctx context.Context, msg mail.Message) error {
	err := h.mailer.Send(ctx, msg)
	h.metrics.MailSent(msg.Kind, err)
	return err
}

func (h *Handler) revoke(ctx context.Context, tok string) {
	// The request context may already be done; revocation must still happen.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.tokens.Revoke(ctx, tok); err != nil {
		h.log.Error("auth.token.revoke.fail", "err", err)
	}
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user identity.User, event string) bool {
	issued, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		httpx.WriteError(w, h.log, event+".session.fail", err)
		return false
	}
	h.guard.SetCookie(w, issued.Token, h.sessions.TTL())
	h.log.Info(event+".ok", "user_id", user.ID, "ip", clientIP(r, h.cfg.TrustProxy))
	return true
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request, event string) (identity.User, bool) {
	userID, ok := guard.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, h.log, event, httpx.Unauthorized("Unauthorized"))
		return identity.User{}, false
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if identity.IsNotFound(err) {
			httpx.WriteError(w, h.log, event, httpx.NotFound("User not found"))
			return identity.User{}, false
		}
		httpx.WriteError(w, h.log, event+".lookup.fail", err)
		return identity.User{}, false
	}
	return user, true
}
