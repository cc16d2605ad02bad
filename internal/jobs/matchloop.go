package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pairline/match-server-go/internal/service"
)

// Inline pairing after enqueue covers the common case; the sweep picks
// up pairs the inline attempt missed (contention, crashes, users whose
// partner arrived while their attempt was rolling back).
const maxPairsPerSweep = 32

type pairer interface {
	AttemptPair(ctx context.Context) (service.PairingOutcome, error)
}

// MatchLoop periodically drains the waiting queue into sessions.
type MatchLoop struct {
	matchmaker pairer
	interval   time.Duration
	done       chan struct{}
}

func NewMatchLoop(matchmaker pairer, interval time.Duration) *MatchLoop {
	return &MatchLoop{
		matchmaker: matchmaker,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

func (l *MatchLoop) Start() {
	go l.run()
	log.Info().Dur("interval", l.interval).Msg("match loop started")
}

func (l *MatchLoop) Stop() {
	close(l.done)
	log.Info().Msg("match loop stopped")
}

func (l *MatchLoop) run() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *MatchLoop) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := 0; i < maxPairsPerSweep; i++ {
		outcome, err := l.matchmaker.AttemptPair(ctx)
		if err != nil {
			// One failed attempt must not wedge pairing for everyone
			// else in the queue
			log.Error().Err(err).Msg("sweep pairing attempt failed")
			continue
		}
		if outcome.Status != service.PairingPaired {
			// Contended pairs are left for the next tick rather than
			// retried against the same advisory lock
			return
		}
	}
}
