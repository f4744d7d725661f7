package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.TokenIssued("login")
	m.TokenConsumed("login", "ok")
	m.TokensPurged(3)
	m.SessionEvent("created", 1)
	m.MailSent("login", nil)
	m.Transcription(errors.New("x"))
	m.ObserveStage("convert", time.Second)
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	assert.Nil(t, m.Registry())

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.TokenIssued("login")
	m.TokenIssued("login")
	m.TokenConsumed("verify_email", "expired")
	m.SessionEvent("created", 1)
	m.SessionEvent("purged", 0)
	m.MailSent("verify_email", errors.New("smtp down"))
	m.Transcription(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokensConsumed.WithLabelValues("verify_email", "expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("created")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessions.WithLabelValues("purged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mailSent.WithLabelValues("verify_email", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transcriptions.WithLabelValues("ok")))
}

func TestHandlerExposesFamilies(t *testing.T) {
	t.Parallel()

	m := New()
	m.TokenIssued("verify_email")
	m.ObserveHTTP(http.MethodPost, "/login", 403, 5*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `scribe_tokens_issued_total{purpose="verify_email"} 1`))
	assert.True(t, strings.Contains(text, `scribe_http_request_duration_seconds_count{class="4xx",method="POST",route="/login"} 1`))
}
