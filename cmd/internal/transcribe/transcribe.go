// Package transcribe turns uploaded audio into text and keeps the caller's
// transcript archive.
//
// The Pipeline implementation converts the upload to 16 kHz mono WAV with
// ffmpeg and posts it to a speech-to-text HTTP API. Both steps run under their
// own timeout and every temporary file is removed before Transcribe returns.
package transcribe

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrUpstream wraps conversion and recognition failures.
	ErrUpstream = errors.New("transcribe: upstream failure")
	// ErrInvalidLanguage is returned for a language hint that is neither "auto" nor a two-letter code.
	ErrInvalidLanguage = errors.New("transcribe: invalid language")
	ErrNoAudio         = errors.New("transcribe: no audio")
	ErrInvalidInput    = errors.New("transcribe: invalid input")
)

// LanguageAuto asks the recognizer to detect the spoken language.
const LanguageAuto = "auto"

// Result is what the recognizer reports.
type Result struct {
	Text             string
	DetectedLanguage string
}

// Transcriber converts and transcribes one audio stream.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, language string) (Result, error)
}

// NormalizeLanguage lower-cases the hint and maps "" to "auto".
func NormalizeLanguage(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == LanguageAuto {
		return LanguageAuto, nil
	}
	if len(s) != 2 || s[0] < 'a' || s[0] > 'z' || s[1] < 'a' || s[1] > 'z' {
		return "", ErrInvalidLanguage
	}
	return s, nil
}

// StoredLanguage is the language recorded for a transcript: the detected one
// when the caller asked for auto detection, otherwise the requested one.
func StoredLanguage(requested, detected string) string {
	if requested == LanguageAuto && detected != "" {
		return detected
	}
	return requested
}
