package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scribe/cmd/internal/auth/guard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	res      Result
	err      error
	gotLang  string
	gotAudio string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio io.Reader, _ string, language string) (Result, error) {
	b, _ := io.ReadAll(audio)
	f.gotAudio = string(b)
	f.gotLang = language
	return f.res, f.err
}

func newTestHandler(t *testing.T, tr Transcriber) (*Handler, *MemoryStore) {
	t.Helper()
	st := NewMemoryStore()
	svc, err := NewService(tr, st, WithServiceClock(func() time.Time {
		return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), 1<<20), st
}

func uploadRequest(t *testing.T, userID string, audio []byte, language string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "clip.webm")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	if language != "" {
		require.NoError(t, mw.WriteField("language", language))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if userID != "" {
		req = req.WithContext(guard.WithUserID(req.Context(), userID))
	}
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestUpload_Success(t *testing.T) {
	tr := &fakeTranscriber{res: Result{Text: "salaam", DetectedLanguage: "ur"}}
	h, st := newTestHandler(t, tr)

	rr := httptest.NewRecorder()
	h.Upload(rr, uploadRequest(t, "u1", []byte("audio-bytes"), ""))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "File uploaded and transcribed successfully", body["message"])
	assert.Equal(t, "salaam", body["transcription"])
	assert.Equal(t, "ur", body["detectedLanguage"])
	assert.Equal(t, "auto", body["requestedLanguage"])
	assert.NotEmpty(t, body["id"])

	assert.Equal(t, "audio-bytes", tr.gotAudio)
	assert.Equal(t, "auto", tr.gotLang)

	saved, err := st.ListByUser(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "ur", saved[0].Language)
	assert.Equal(t, body["id"], saved[0].ID)
}

func TestUpload_ExplicitLanguageIsStored(t *testing.T) {
	tr := &fakeTranscriber{res: Result{Text: "hi", DetectedLanguage: "ur"}}
	h, st := newTestHandler(t, tr)

	rr := httptest.NewRecorder()
	h.Upload(rr, uploadRequest(t, "u1", []byte("a"), "EN"))
	require.Equal(t, http.StatusOK, rr.Code)

	saved, err := st.ListByUser(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "en", saved[0].Language)
	assert.Equal(t, "en", saved[0].RequestedLanguage)
}

func TestUpload_Errors(t *testing.T) {
	cases := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		tr     *fakeTranscriber
		status int
		msg    string
	}{
		{
			name:   "no session",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "", []byte("a"), "") },
			tr:     &fakeTranscriber{},
			status: http.StatusUnauthorized,
			msg:    "Unauthorized",
		},
		{
			name:   "missing file",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "u1", nil, "en") },
			tr:     &fakeTranscriber{},
			status: http.StatusBadRequest,
			msg:    "No audio file uploaded",
		},
		{
			name:   "bad language",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "u1", []byte("a"), "english") },
			tr:     &fakeTranscriber{},
			status: http.StatusBadRequest,
			msg:    "Invalid language",
		},
		{
			name:   "upstream failure",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "u1", []byte("a"), "") },
			tr:     &fakeTranscriber{err: errors.Join(ErrUpstream, errors.New("ffmpeg exit 1"))},
			status: http.StatusInternalServerError,
			msg:    "Transcription failed",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestHandler(t, tc.tr)
			rr := httptest.NewRecorder()
			h.Upload(rr, tc.req(t))
			require.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.msg, decode(t, rr)["error"])
		})
	}
}

func TestList(t *testing.T) {
	h, st := newTestHandler(t, &fakeTranscriber{})
	require.NoError(t, st.Save(context.Background(), Transcription{
		ID: "t1", UserID: "u1", Text: "hello", Language: "en", RequestedLanguage: "en",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	req := httptest.NewRequest(http.MethodGet, "/transcriptions", nil)
	req = req.WithContext(guard.WithUserID(req.Context(), "u1"))
	rr := httptest.NewRecorder()
	h.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var out listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Transcriptions, 1)
	assert.Equal(t, "hello", out.Transcriptions[0].Text)
}
