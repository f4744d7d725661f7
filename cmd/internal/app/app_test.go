package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"scribe/cmd/internal/mail"
	"scribe/cmd/internal/transcribe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenRe = regexp.MustCompile(`token=([0-9a-f]{64})`)

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent, "no mail sent")
	m := tokenRe.FindStringSubmatch(o.sent[len(o.sent)-1].Text)
	require.Len(t, m, 2, "no token link in mail")
	return m[1]
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(_ context.Context, audio io.Reader, _, _ string) (transcribe.Result, error) {
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return transcribe.Result{}, err
	}
	return transcribe.Result{Text: "hello from the stub", DetectedLanguage: "en"}, nil
}

func newTestApp(t *testing.T, mutate func(*Config)) (*App, *outbox) {
	t.Helper()

	cfg := Config{
		Env:            "test",
		BaseURL:        "http://scribe.test",
		UploadMaxBytes: 1 << 20,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	box := &outbox{}
	a, err := New(context.Background(), cfg, discardLogger(), WithMailSender(box), WithTranscriber(stubTranscriber{}))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, box
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withCookie(req *http.Request, c *http.Cookie) *http.Request {
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	return req
}

func uploadReq(t *testing.T, language string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "memo.webm")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not really audio"))
	require.NoError(t, err)
	if language != "" {
		require.NoError(t, mw.WriteField("language", language))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "sessionToken" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in %v", rr.Header().Values("Set-Cookie"))
	return nil
}

func TestOpsEndpoints(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "scribe_http_request_duration_seconds")

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rr.Body.String())
}

func TestReadyz_RequiresDB(t *testing.T) {
	a, _ := newTestApp(t, func(c *Config) { c.ReadinessRequireDB = true })

	rr := do(t, a.Handler(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestNew_ProductionRequiresSecret(t *testing.T) {
	_, err := New(context.Background(), Config{Env: "production", BaseURL: "https://scribe.example"}, discardLogger())
	require.Error(t, err)
}

func TestAnonymousAccess(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()

	rr := do(t, h, uploadReq(t, ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String())

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/transcriptions", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	for _, path := range []string{"/", "/dashboard", "/account/settings"} {
		rr = do(t, h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, rr.Code, path)
		assert.Equal(t, "/login", rr.Header().Get("Location"), path)
	}

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignupLoginUploadFlow(t *testing.T) {
	a, box := newTestApp(t, nil)
	h := a.Handler()

	rr := do(t, h, jsonReq(http.MethodPost, "/signup", `{"email":"Ada@Example.com","name":"Ada"}`))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/verify-email?token="+box.lastToken(t), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, jsonReq(http.MethodPost, "/login", `{"email":"ada@example.com"}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/verify-login?token="+box.lastToken(t), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookie := sessionCookie(t, rr)

	rr = do(t, h, withCookie(uploadReq(t, "auto"), cookie))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var up struct {
		Message           string `json:"message"`
		Transcription     string `json:"transcription"`
		ID                string `json:"id"`
		DetectedLanguage  string `json:"detectedLanguage"`
		RequestedLanguage string `json:"requestedLanguage"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &up))
	assert.Equal(t, "File uploaded and transcribed successfully", up.Message)
	assert.Equal(t, "hello from the stub", up.Transcription)
	assert.Equal(t, "en", up.DetectedLanguage)
	assert.Equal(t, "auto", up.RequestedLanguage)
	assert.NotEmpty(t, up.ID)

	rr = do(t, h, withCookie(httptest.NewRequest(http.MethodGet, "/transcriptions", nil), cookie))
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Transcriptions []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"transcriptions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Transcriptions, 1)
	assert.Equal(t, up.ID, list.Transcriptions[0].ID)

	// Signed-in users are bounced away from /login; pages without a static dir are 404.
	rr = do(t, h, withCookie(httptest.NewRequest(http.MethodGet, "/login", nil), cookie))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	rr = do(t, h, withCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), cookie))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), cookie))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Welcome, Ada")

	rr = do(t, h, withCookie(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, withCookie(httptest.NewRequest(http.MethodGet, "/transcriptions", nil), cookie))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	tokens, sessions, err := a.Purge(context.Background())
	require.NoError(t, err)
	assert.Zero(t, tokens)
	assert.Zero(t, sessions)
}
