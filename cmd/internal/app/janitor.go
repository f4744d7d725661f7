package app

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes expired rows and reports how many went away.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// janitor periodically purges expired verification tokens and sessions.
type janitor struct {
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration
	targets  map[string]Purger
}

func newJanitor(log *slog.Logger, interval time.Duration, targets map[string]Purger) *janitor {
	return &janitor{log: log, interval: interval, timeout: 30 * time.Second, targets: targets}
}

// run blocks until ctx is done. A non-positive interval returns immediately.
func (j *janitor) run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}

	t := time.NewTicker(j.interval)
	defer t.Stop()

	j.log.Info("janitor.start", "interval", j.interval.String())
	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor.stop")
			return
		case <-t.C:
			j.sweep(ctx)
		}
	}
}

// sweep runs every target once. Failures are logged and do not stop the others.
func (j *janitor) sweep(parent context.Context) map[string]int64 {
	ctx, cancel := context.WithTimeout(parent, j.timeout)
	defer cancel()

	counts := make(map[string]int64, len(j.targets))
	for name, p := range j.targets {
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			j.log.Error("janitor.purge.fail", "target", name, "err", err)
			continue
		}
		counts[name] = n
		if n > 0 {
			j.log.Info("janitor.purged", "target", name, "count", n)
		}
	}
	return counts
}
