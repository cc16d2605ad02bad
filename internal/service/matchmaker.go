package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/pairline/match-server-go/internal/config"
	"github.com/pairline/match-server-go/internal/database"
	apperrors "github.com/pairline/match-server-go/internal/errors"
	"github.com/pairline/match-server-go/internal/model"
	"github.com/pairline/match-server-go/internal/repository"
	"github.com/pairline/match-server-go/internal/sse"
)

type PairingStatus string

const (
	PairingPaired                 PairingStatus = "paired"
	PairingInsufficientCandidates PairingStatus = "insufficient_candidates"
	PairingContended              PairingStatus = "contended"
)

type PairingOutcome struct {
	Status  PairingStatus
	Session *model.Session
}

type EnqueueResult struct {
	AlreadyQueued bool      `json:"alreadyQueued"`
	QueuedAt      time.Time `json:"queuedAt"`
}

type MatchmakerConfig struct {
	VideoDuration  time.Duration
	ChatDuration   time.Duration
	Cooldown       time.Duration
	PairLockTTL    time.Duration
	CandidateLimit int
}

type Matchmaker struct {
	tx          TxRunner
	queueRepo   repository.QueueRepository
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	locks       PairLocker
	events      EventPublisher
	limiter     Limiter
	cfg         MatchmakerConfig
}

func NewMatchmaker(
	tx TxRunner,
	queueRepo repository.QueueRepository,
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	locks PairLocker,
	events EventPublisher,
	limiter Limiter,
	cfg MatchmakerConfig,
) *Matchmaker {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = config.PairCandidateLimit
	}
	return &Matchmaker{
		tx:          tx,
		queueRepo:   queueRepo,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		locks:       locks,
		events:      events,
		limiter:     limiter,
		cfg:         cfg,
	}
}

// Enqueue puts the user into the waiting queue. Rejected while the user
// holds a live session or an unexpired cooldown; re-enqueueing while
// already waiting reports the original join time instead of erroring.
func (m *Matchmaker) Enqueue(ctx context.Context, userID string, prefs model.Preferences) (*EnqueueResult, error) {
	if m.limiter != nil {
		if allowed, _ := m.limiter.CheckLimit(ctx, "enqueue:"+userID, config.EnqueueRateLimitPerMin, time.Minute); !allowed {
			return nil, apperrors.RateLimitExceeded()
		}
	}

	if err := m.userRepo.Ensure(ctx, userID); err != nil {
		return nil, apperrors.Database(err)
	}
	user, err := m.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	now := time.Now()

	if user.ActiveSessionID != nil {
		sess, err := m.sessionRepo.FindByID(ctx, *user.ActiveSessionID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if sess != nil && sess.PhaseAt(now) != model.SessionStatusEnded {
			return nil, apperrors.AlreadyInSession(sess.ID)
		}

		// Stale pointer: the session is gone or ran out its clock
		// before anyone observed the end. Finalize it here so the row
		// stops counting as live and the cooldown still starts from
		// the real session end.
		if sess == nil {
			if err := m.userRepo.DetachSession(ctx, userID); err != nil {
				return nil, apperrors.Database(err)
			}
		} else {
			ended, endAt, err := finalizeSession(ctx, m.tx, m.sessionRepo, m.userRepo, sess.ID, nil, now)
			if err != nil {
				return nil, apperrors.Database(err)
			}
			if ended != nil {
				user.LastSessionEnd = &endAt
				publishSessionEnded(ctx, m.events, ended)
			}
		}
		user.ActiveSessionID = nil
	}

	if remaining := user.CooldownRemaining(now, m.cfg.Cooldown); remaining > 0 {
		return nil, apperrors.InCooldown(remaining)
	}

	existing, err := m.queueRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return &EnqueueResult{AlreadyQueued: true, QueuedAt: existing.JoinedAt}, nil
	}

	entry := model.WaitingEntry{
		UserID:     userID,
		Gender:     user.Gender,
		PrefGender: prefs.Gender,
		PrefMinAge: prefs.MinAge,
		PrefMaxAge: prefs.MaxAge,
		JoinedAt:   now,
	}
	if err := m.queueRepo.Insert(ctx, entry); err != nil {
		// A concurrent enqueue may have won the unique constraint race
		if raced, ferr := m.queueRepo.FindByUserID(ctx, userID); ferr == nil && raced != nil {
			return &EnqueueResult{AlreadyQueued: true, QueuedAt: raced.JoinedAt}, nil
		}
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("userId", userID).
		Time("joinedAt", now).
		Msg("user enqueued")

	go m.pairAsync()

	return &EnqueueResult{QueuedAt: now}, nil
}

// Dequeue removes the user's waiting entry. A no-op if absent, and safe
// against a concurrent pairing commit: if the pair already committed the
// entry is gone and the user is correctly in a session.
func (m *Matchmaker) Dequeue(ctx context.Context, userID string) error {
	if err := m.queueRepo.Delete(ctx, userID); err != nil {
		return apperrors.Database(err)
	}
	log.Debug().Str("userId", userID).Msg("user dequeued")
	return nil
}

// AttemptPair selects two waiting users and commits the new session,
// the removal of both queue entries, and both directory pointers as one
// transaction. No concurrent attempt can observe a half-committed pair.
func (m *Matchmaker) AttemptPair(ctx context.Context) (PairingOutcome, error) {
	outcome := PairingOutcome{Status: PairingInsufficientCandidates}
	var pairA, pairB string
	var lockHeld bool

	err := m.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		queueRepo := m.queueRepo.WithTx(tx)
		sessionRepo := m.sessionRepo.WithTx(tx)
		userRepo := m.userRepo.WithTx(tx)

		candidates, err := queueRepo.CandidatesForUpdate(ctx, m.cfg.CandidateLimit)
		if err != nil {
			return err
		}

		first, second, ok := selectPair(candidates)
		if !ok {
			return nil
		}
		if first.UserID == second.UserID {
			return apperrors.InvariantViolation("pair selection produced a duplicate user")
		}
		pairA, pairB = first.UserID, second.UserID

		acquired, err := m.locks.AcquirePairLock(ctx, pairA, pairB, m.cfg.PairLockTTL)
		if err != nil {
			// Advisory only: the transaction still isolates the commit
			log.Warn().Err(err).Msg("pair lock unavailable, relying on transaction isolation")
		} else if !acquired {
			outcome = PairingOutcome{Status: PairingContended}
			return nil
		} else {
			lockHeld = true
		}

		// The candidate query filtered on a null session pointer, but
		// the sessions table is what the invariant is stated over
		for _, id := range []string{first.UserID, second.UserID} {
			live, err := sessionRepo.CountLiveByParticipant(ctx, id)
			if err != nil {
				return err
			}
			if live > 0 {
				return apperrors.InvariantViolation(
					fmt.Sprintf("queued user %s already holds a live session", id))
			}
		}

		now := time.Now()
		sess, err := sessionRepo.Create(ctx, model.CreateSessionParams{
			ID:           uuid.NewString(),
			ParticipantA: first.UserID,
			ParticipantB: second.UserID,
			StartedAt:    now,
			VideoEndsAt:  now.Add(m.cfg.VideoDuration),
			ChatEndsAt:   now.Add(m.cfg.VideoDuration + m.cfg.ChatDuration),
		})
		if err != nil {
			return err
		}

		if err := queueRepo.Delete(ctx, first.UserID); err != nil {
			return err
		}
		if err := queueRepo.Delete(ctx, second.UserID); err != nil {
			return err
		}
		if err := userRepo.SetActiveSession(ctx, first.UserID, sess.ID); err != nil {
			return err
		}
		if err := userRepo.SetActiveSession(ctx, second.UserID, sess.ID); err != nil {
			return err
		}

		outcome = PairingOutcome{Status: PairingPaired, Session: sess}
		return nil
	})

	if lockHeld {
		// The lock guards the attempt, not the committed state; drop it
		// whether or not the transaction went through
		if rerr := m.locks.ReleasePairLock(ctx, pairA, pairB); rerr != nil {
			log.Debug().Err(rerr).Msg("pair lock release failed, lock will expire")
		}
	}

	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			if appErr.Code == apperrors.ErrCodeInvariantViolation {
				log.Error().Str("error", appErr.Message).Msg("pairing aborted: invariant violation")
			}
			return PairingOutcome{}, appErr
		}
		if database.IsRetryable(err) {
			return PairingOutcome{}, apperrors.Transient(err)
		}
		return PairingOutcome{}, apperrors.Database(err)
	}

	if outcome.Status == PairingPaired {
		m.publishMatched(ctx, outcome.Session)
		log.Info().
			Str("sessionId", outcome.Session.ID).
			Str("participantA", pairA).
			Str("participantB", pairB).
			Time("videoEndsAt", outcome.Session.VideoEndsAt).
			Msg("pair committed")
	}

	return outcome, nil
}

// selectPair applies the pairing policy: when both gender partitions are
// non-empty, take the longest-waiting member of each; otherwise take the
// two longest-waiting candidates overall.
func selectPair(candidates []model.WaitingEntry) (model.WaitingEntry, model.WaitingEntry, bool) {
	if len(candidates) < 2 {
		return model.WaitingEntry{}, model.WaitingEntry{}, false
	}

	sorted := make([]model.WaitingEntry, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})

	var males, females []model.WaitingEntry
	for _, c := range sorted {
		if c.Gender == nil {
			continue
		}
		switch *c.Gender {
		case model.GenderMale:
			males = append(males, c)
		case model.GenderFemale:
			females = append(females, c)
		}
	}

	if len(males) > 0 && len(females) > 0 {
		return males[0], females[0], true
	}
	return sorted[0], sorted[1], true
}

func (m *Matchmaker) pairAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcome, err := m.AttemptPair(ctx)
	if err != nil {
		log.Error().Err(err).Msg("inline pairing attempt failed")
		return
	}
	log.Debug().Str("outcome", string(outcome.Status)).Msg("inline pairing attempt finished")
}

func (m *Matchmaker) publishMatched(ctx context.Context, sess *model.Session) {
	for _, id := range []string{sess.ParticipantA, sess.ParticipantB} {
		event, err := sse.NewEvent("matched", map[string]any{
			"sessionId":   sess.ID,
			"partnerId":   sess.PartnerOf(id),
			"videoEndsAt": sess.VideoEndsAt,
			"chatEndsAt":  sess.ChatEndsAt,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to build matched event")
			return
		}
		if err := m.events.Publish(ctx, id, event); err != nil {
			log.Warn().Err(err).Str("userId", id).Msg("failed to publish matched event")
		}
	}
}
