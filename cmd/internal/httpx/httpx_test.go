package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestKindStatus(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		KindValidation:   400,
		KindConflict:     400,
		KindToken:        400,
		KindNotFound:     404,
		KindForbidden:    403,
		KindUnauthorized: 401,
		KindUpstream:     500,
		KindInternal:     500,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.Status(), k.String())
	}
}

func TestWriteError_Classified(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteError(rr, nil, "test", fmt.Errorf("wrapped: %w", Forbidden("Email not verified. Please verify your email first.")))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Email not verified. Please verify your email first.", decodeError(t, rr))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestWriteError_UnclassifiedIsGeneric(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	rr := httptest.NewRecorder()
	WriteError(rr, log, "auth.test.fail", errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal server error", decodeError(t, rr))
	assert.Contains(t, logs.String(), "auth.test.fail")
	assert.Contains(t, logs.String(), "connection refused")
}

func TestWriteError_UpstreamKeepsCauseOutOfBody(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	rr := httptest.NewRecorder()
	WriteError(rr, log, "mail.fail", Upstream("Failed to send email", errors.New("535 auth failed")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to send email", decodeError(t, rr))
	assert.NotContains(t, rr.Body.String(), "535")
	assert.Contains(t, logs.String(), "535 auth failed")
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type req struct {
		Email string `json:"email"`
	}

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "ok", body: `{"email":"a@x.com"}`},
		{name: "unknown field", body: `{"email":"a@x.com","admin":true}`, wantErr: true},
		{name: "trailing data", body: `{"email":"a@x.com"}{}`, wantErr: true},
		{name: "too large", body: `{"email":"` + strings.Repeat("a", 2048) + `"}`, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader(tc.body)))
			var dst req
			err := DecodeJSON(httptest.NewRecorder(), r, 1024, &dst)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", dst.Email)
		})
	}
}
