package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lateralab/soup-backend/internal/store"
)

// ExpiryWorker periodically fails sessions that have sat idle past the
// configured cutoff. Only ACTIVE sessions are touched; terminal sessions
// keep their state and story forever.
type ExpiryWorker struct {
	sessions store.Store
	idleFor  time.Duration
	interval time.Duration
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(sessions store.Store, idleFor time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		sessions: sessions,
		idleFor:  idleFor,
		interval: 5 * time.Minute,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("idle_for", w.idleFor).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	n, err := w.sessions.ExpireStale(ctx, w.idleFor)
	if err != nil {
		w.log.Error().Err(err).Msg("Expiry sweep failed")
		return
	}
	if n > 0 {
		w.log.Info().Int64("expired", n).Msg("Expired idle sessions")
	}
}
