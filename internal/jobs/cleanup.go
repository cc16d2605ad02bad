package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pairline/match-server-go/internal/config"
	"github.com/pairline/match-server-go/internal/repository"
)

// CleanupJob sweeps state that expires lazily: waiting entries past the
// queue TTL and ended sessions both participants have vacated.
type CleanupJob struct {
	queueRepo   repository.QueueRepository
	sessionRepo repository.SessionRepository
	queueTTL    time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewCleanupJob(
	queueRepo repository.QueueRepository,
	sessionRepo repository.SessionRepository,
	queueTTL time.Duration,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		queueRepo:   queueRepo,
		sessionRepo: sessionRepo,
		queueTTL:    queueTTL,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	j.runCleanup(ctx, "stale queue entries", func(ctx context.Context) (int64, error) {
		return j.queueRepo.DeleteStale(ctx, now.Add(-j.queueTTL))
	})
	j.runCleanup(ctx, "vacated ended sessions", func(ctx context.Context) (int64, error) {
		return j.sessionRepo.DeleteVacatedEnded(ctx, now.Add(-config.EndedSessionRetention))
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
