package services

import (
	"context"
	"log/slog"
	"time"
)

const sweepTimeout = 5 * time.Minute

// sessionSweeper deletes stale logins on a fixed interval until its context ends
type sessionSweeper struct {
	interval time.Duration
	sweep    func(ctx context.Context) (int64, error)
}

func (s sessionSweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Session sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s sessionSweeper) sweepOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sweepTimeout)
	defer cancel()

	removed, err := s.sweep(sweepCtx)
	switch {
	case err != nil:
		slog.Error("Session sweep failed", "error", err)
	case removed > 0:
		slog.Info("Removed expired chat sessions", "count", removed)
	}
}

// StartSessionCleanup sweeps expired sessions every interval in the background
func StartSessionCleanup(ctx context.Context, interval time.Duration) {
	go sessionSweeper{interval: interval, sweep: CleanupExpiredSessions}.run(ctx)
	slog.Info("Session sweeper started", "interval", interval.String())
}
