package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Converter normalizes an audio file for the recognizer.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// FFmpegConverter shells out to ffmpeg.
type FFmpegConverter struct {
	Path    string
	Timeout time.Duration
}

// Convert writes a 16 kHz mono s16 WAV of src to dst.
func (c FFmpegConverter) Convert(ctx context.Context, src, dst string) error {
	bin := c.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-y", "-i", src,
		"-ac", "1", "-ar", "16000", "-sample_fmt", "s16",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: ffmpeg: %v", ErrUpstream, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrUpstream, err, msg)
	}
	return nil
}
