package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxResponseBytes caps the recognizer's JSON reply.
const maxResponseBytes = 4 << 20

// APIClient talks to the speech-to-text service's POST /transcribe endpoint.
type APIClient struct {
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
}

type apiResponse struct {
	Transcript        string `json:"transcript"`
	Language          string `json:"language"`
	RequestedLanguage string `json:"requested_language"`
}

// Recognize uploads the WAV at path as the "file" field, with "language" as the hint.
func (c APIClient) Recognize(ctx context.Context, path, language string) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: open converted audio: %v", ErrUpstream, err)
	}
	defer func() { _ = f.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, f, filepath.Base(path), language))
	}()

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.Close()
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: transcription api: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return Result{}, fmt.Errorf("%w: transcription api: %s", ErrUpstream, resp.Status)
	}

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: decode transcription: %v", ErrUpstream, err)
	}
	return Result{Text: strings.TrimSpace(out.Transcript), DetectedLanguage: out.Language}, nil
}

func writeForm(mw *multipart.Writer, audio io.Reader, filename, language string) error {
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	if err := mw.WriteField("language", language); err != nil {
		return err
	}
	return mw.Close()
}
