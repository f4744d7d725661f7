package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"scribe/cmd/internal/metrics"
)

// Recognizer turns a converted WAV file into text.
type Recognizer interface {
	Recognize(ctx context.Context, path, language string) (Result, error)
}

// Pipeline is the Transcriber used in production: spool, convert, recognize.
type Pipeline struct {
	converter  Converter
	recognizer Recognizer
	dir        string
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTempDir sets where uploads are spooled. Defaults to os.TempDir().
func WithTempDir(dir string) PipelineOption {
	return func(p *Pipeline) { p.dir = dir }
}

func WithLogger(log *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline wires a converter and recognizer together.
func NewPipeline(conv Converter, rec Recognizer, opts ...PipelineOption) (*Pipeline, error) {
	if conv == nil || rec == nil {
		return nil, ErrInvalidInput
	}
	p := &Pipeline{converter: conv, recognizer: rec, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.dir == "" {
		p.dir = os.TempDir()
	}
	return p, nil
}

// Transcribe spools audio to disk, converts it and sends it to the recognizer.
// The original and converted files are removed on every path.
func (p *Pipeline) Transcribe(ctx context.Context, audio io.Reader, filename, language string) (Result, error) {
	if audio == nil {
		return Result{}, ErrNoAudio
	}

	base := uuid.NewString()
	original := filepath.Join(p.dir, base+safeExt(filename))
	converted := filepath.Join(p.dir, base+"-converted.wav")
	defer p.remove(original, converted)

	n, err := spool(original, audio)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: spool upload: %w", err)
	}
	if n == 0 {
		return Result{}, ErrNoAudio
	}

	start := time.Now()
	err = p.converter.Convert(ctx, original, converted)
	p.metrics.ObserveStage("convert", time.Since(start))
	if err != nil {
		return Result{}, upstream(err)
	}

	start = time.Now()
	res, err := p.recognizer.Recognize(ctx, converted, language)
	p.metrics.ObserveStage("recognize", time.Since(start))
	if err != nil {
		return Result{}, upstream(err)
	}
	return res, nil
}

func (p *Pipeline) remove(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.log.Warn("transcribe.cleanup.fail", "path", path, "err", err)
		}
	}
}

func spool(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func upstream(err error) error {
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

// safeExt keeps a short alphanumeric extension from the client's file name.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
