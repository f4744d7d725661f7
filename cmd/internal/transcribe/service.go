package transcribe

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"scribe/cmd/identity/ids"
	"scribe/cmd/internal/metrics"
)

// Outcome is the result of a successful upload.
type Outcome struct {
	Transcription     Transcription
	DetectedLanguage  string
	RequestedLanguage string
}

// Service runs a transcription and archives it for the uploader.
type Service struct {
	transcriber Transcriber
	store       Store
	now         func() time.Time
	metrics     *metrics.Metrics
}

type ServiceOption func(*Service)

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(t Transcriber, store Store, opts ...ServiceOption) (*Service, error) {
	if t == nil || store == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		transcriber: t,
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Upload transcribes audio for userID and stores the transcript.
func (s *Service) Upload(ctx context.Context, userID string, audio io.Reader, filename, language string) (Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return Outcome{}, ErrInvalidInput
	}
	lang, err := NormalizeLanguage(language)
	if err != nil {
		return Outcome{}, err
	}

	res, err := s.transcriber.Transcribe(ctx, audio, filename, lang)
	if err != nil {
		if !errors.Is(err, ErrNoAudio) {
			s.metrics.Transcription(err)
		}
		return Outcome{}, err
	}

	now := s.now()
	id, err := ids.NewULID(now)
	if err != nil {
		return Outcome{}, err
	}
	t := Transcription{
		ID:                id,
		UserID:            userID,
		Text:              res.Text,
		Language:          StoredLanguage(lang, res.DetectedLanguage),
		RequestedLanguage: lang,
		CreatedAt:         now,
	}
	if err := s.store.Save(ctx, t); err != nil {
		s.metrics.Transcription(err)
		return Outcome{}, err
	}
	s.metrics.Transcription(nil)

	return Outcome{Transcription: t, DetectedLanguage: res.DetectedLanguage, RequestedLanguage: lang}, nil
}

// History returns the user's most recent transcripts, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Transcription, error) {
	return s.store.ListByUser(ctx, userID, limit)
}
