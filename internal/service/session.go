package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/pairline/match-server-go/internal/config"
	apperrors "github.com/pairline/match-server-go/internal/errors"
	"github.com/pairline/match-server-go/internal/model"
	"github.com/pairline/match-server-go/internal/repository"
	"github.com/pairline/match-server-go/internal/sse"
)

// SessionService owns the session phase state machine. Phases are
// always derived from the stored timestamps against the server clock;
// the `chat` and `ended` rows are persisted lazily, when a read or an
// explicit end observes the transition.
type SessionService struct {
	tx          TxRunner
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	queueRepo   repository.QueueRepository
	msgRepo     repository.MessageRepository
	events      EventPublisher
	limiter     Limiter
	cooldown    time.Duration
}

func NewSessionService(
	tx TxRunner,
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	queueRepo repository.QueueRepository,
	msgRepo repository.MessageRepository,
	events EventPublisher,
	limiter Limiter,
	cooldown time.Duration,
) *SessionService {
	return &SessionService{
		tx:          tx,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		queueRepo:   queueRepo,
		msgRepo:     msgRepo,
		events:      events,
		limiter:     limiter,
		cooldown:    cooldown,
	}
}

// Status computes the caller's authoritative phase view. Reading past
// chatEndsAt performs the ended transition as a side effect.
func (s *SessionService) Status(ctx context.Context, userID string) (*model.StatusView, error) {
	now := time.Now()

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if user != nil && user.ActiveSessionID != nil {
		view, err := s.sessionStatus(ctx, user, now)
		if err != nil {
			return nil, err
		}
		if view != nil {
			return view, nil
		}
		// Session vanished under the pointer; fall through to the
		// cooldown and queue checks.
	}

	if user != nil {
		if remaining := user.CooldownRemaining(now, s.cooldown); remaining > 0 {
			end := user.LastSessionEnd.Add(s.cooldown)
			ms := remaining.Milliseconds()
			return &model.StatusView{
				Status:      model.StatusCooldown,
				CooldownEnd: &end,
				TimeLeftMS:  &ms,
			}, nil
		}
	}

	total, err := s.queueRepo.CountWaiting(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	entry, err := s.queueRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if entry != nil {
		position, err := s.queueRepo.PositionOf(ctx, entry.JoinedAt)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		return &model.StatusView{
			Status:        model.StatusQueued,
			QueuedAt:      &entry.JoinedAt,
			QueuePosition: &position,
			TotalInQueue:  &total,
		}, nil
	}

	return &model.StatusView{Status: model.StatusIdle, TotalInQueue: &total}, nil
}

func (s *SessionService) sessionStatus(ctx context.Context, user *model.UserRecord, now time.Time) (*model.StatusView, error) {
	sess, err := s.sessionRepo.FindByID(ctx, *user.ActiveSessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if sess == nil {
		// Both sides already cleaned up; drop the stale pointer
		if err := s.userRepo.DetachSession(ctx, user.ID); err != nil {
			return nil, apperrors.Database(err)
		}
		user.ActiveSessionID = nil
		return nil, nil
	}
	if !sess.HasParticipant(user.ID) {
		err := apperrors.InvariantViolation("directory points user at a session they are not part of")
		log.Error().
			Str("userId", user.ID).
			Str("sessionId", sess.ID).
			Msg(err.Message)
		return nil, err
	}

	phase := sess.PhaseAt(now)

	if phase == model.SessionStatusEnded {
		ended, err := s.finalize(ctx, sess.ID, nil, now)
		if err != nil {
			return nil, err
		}
		if ended != nil {
			publishSessionEnded(ctx, s.events, ended)
		}
		return &model.StatusView{Status: model.StatusEnded, SessionID: &sess.ID}, nil
	}

	if phase == model.SessionStatusChat && sess.Status == model.SessionStatusVideo {
		if err := s.sessionRepo.MarkChat(ctx, sess.ID); err != nil {
			return nil, apperrors.Database(err)
		}
	}

	partnerID := sess.PartnerOf(user.ID)
	view := &model.StatusView{
		SessionID: &sess.ID,
		PartnerID: &partnerID,
	}

	partner, err := s.userRepo.FindByID(ctx, partnerID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if partner != nil && partner.DisplayName != "" {
		view.PartnerName = &partner.DisplayName
	}

	ms := sess.PhaseEndsAt(phase).Sub(now).Milliseconds()
	view.TimeLeftMS = &ms

	if phase == model.SessionStatusVideo {
		view.Status = model.StatusInSession
		signals, err := s.sessionRepo.GetSignals(ctx, sess.ID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		view.PeerSignals = signals
	} else {
		view.Status = model.StatusInChat
	}

	return view, nil
}

// UpdateSignal sets the caller's slot in the session's signaling
// exchange. The token is opaque to this layer.
func (s *SessionService) UpdateSignal(ctx context.Context, sessionID, userID string, token *string) error {
	sess, err := s.participantSession(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if sess.PhaseAt(time.Now()) == model.SessionStatusEnded {
		return apperrors.SessionEnded()
	}

	if err := s.sessionRepo.UpsertSignal(ctx, sessionID, userID, token); err != nil {
		return apperrors.Database(err)
	}

	event, err := sse.NewEvent("signal", map[string]any{
		"sessionId": sessionID,
		"userId":    userID,
		"token":     token,
	})
	if err == nil {
		if perr := s.events.Publish(ctx, sess.PartnerOf(userID), event); perr != nil {
			log.Warn().Err(perr).Msg("failed to publish signal event")
		}
	}

	log.Debug().
		Str("sessionId", sessionID).
		Str("userId", userID).
		Bool("cleared", token == nil).
		Msg("peer signal updated")

	return nil
}

// PostMessage appends to the session's chat log.
func (s *SessionService) PostMessage(ctx context.Context, sessionID, userID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.MissingRequired("text")
	}
	if len(text) > config.MaxMessageLength {
		return nil, apperrors.InvalidInput("text", "message too long")
	}

	if s.limiter != nil {
		if allowed, _ := s.limiter.CheckLimit(ctx, "message:"+userID, config.MessageRateLimitPerMin, time.Minute); !allowed {
			return nil, apperrors.RateLimitExceeded()
		}
	}

	sess, err := s.participantSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.PhaseAt(time.Now()) == model.SessionStatusEnded {
		return nil, apperrors.SessionEnded()
	}

	count, err := s.msgRepo.CountBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if count >= config.MaxMessagesPerSession {
		return nil, apperrors.Conflict("message limit reached for this session")
	}

	msg, err := s.msgRepo.Append(ctx, model.CreateMessageParams{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		SenderID:  userID,
		Body:      text,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if event, eerr := sse.NewEvent("message", msg); eerr == nil {
		if perr := s.events.Publish(ctx, sess.PartnerOf(userID), event); perr != nil {
			log.Warn().Err(perr).Msg("failed to publish message event")
		}
	}

	return msg, nil
}

// ListMessages returns the session's chat log to a participant.
func (s *SessionService) ListMessages(ctx context.Context, sessionID, userID string) ([]model.Message, error) {
	if _, err := s.participantSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	messages, err := s.msgRepo.ListBySession(ctx, sessionID, config.MaxMessagesPerSession)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return messages, nil
}

// EndSession terminates the session immediately, regardless of timers.
// Ending an already-ended session is a no-op success.
func (s *SessionService) EndSession(ctx context.Context, sessionID, requesterID string) error {
	sess, err := s.participantSession(ctx, sessionID, requesterID)
	if err != nil {
		return err
	}

	if sess.Status == model.SessionStatusEnded {
		return nil
	}

	ended, err := s.finalize(ctx, sessionID, &requesterID, time.Now())
	if err != nil {
		return err
	}
	if ended != nil {
		publishSessionEnded(ctx, s.events, ended)
		log.Info().
			Str("sessionId", sessionID).
			Str("endedBy", requesterID).
			Msg("session ended")
	}

	return nil
}

func (s *SessionService) participantSession(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	sess, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if sess == nil {
		return nil, apperrors.NotFound("session")
	}
	if !sess.HasParticipant(userID) {
		return nil, apperrors.Forbidden("Not a participant of this session")
	}
	return sess, nil
}

// finalize commits the ended transition and vacates both directory
// pointers in one transaction. Idempotent: already-ended sessions only
// get their remaining pointers cleared.
func (s *SessionService) finalize(ctx context.Context, sessionID string, endedBy *string, at time.Time) (*model.Session, error) {
	ended, _, err := finalizeSession(ctx, s.tx, s.sessionRepo, s.userRepo, sessionID, endedBy, at)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return ended, nil
}

// finalizeSession commits the ended transition and vacates both
// directory pointers in one transaction. Shared between the session
// manager and the matchmaker: the matchmaker finalizes here too when an
// enqueue observes a session that expired by clock, so the row stops
// counting as live. Idempotent: already-ended sessions only get their
// remaining pointers cleared. Returns the session and its end time.
func finalizeSession(
	ctx context.Context,
	runner TxRunner,
	sessions repository.SessionRepository,
	users repository.UserRepository,
	sessionID string,
	endedBy *string,
	at time.Time,
) (*model.Session, time.Time, error) {
	var (
		ended *model.Session
		endAt time.Time
	)

	err := runner.WithTx(ctx, func(tx *sqlx.Tx) error {
		sessionRepo := sessions.WithTx(tx)
		userRepo := users.WithTx(tx)

		sess, err := sessionRepo.FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return nil
		}

		endAt = at
		if sess.EndedAt != nil {
			endAt = *sess.EndedAt
		} else if endedBy == nil && sess.PhaseAt(at) == model.SessionStatusEnded {
			// Timer expiry: the session ended when its clock ran out,
			// not when somebody noticed
			endAt = sess.ChatEndsAt
		}

		if sess.Status != model.SessionStatusEnded {
			if err := sessionRepo.MarkEnded(ctx, sess.ID, endedBy, endAt); err != nil {
				return err
			}
		}

		for _, id := range []string{sess.ParticipantA, sess.ParticipantB} {
			u, err := userRepo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if u != nil && u.ActiveSessionID != nil && *u.ActiveSessionID == sess.ID {
				if err := userRepo.ClearActiveSession(ctx, id, endAt); err != nil {
					return err
				}
			}
		}

		ended = sess
		return nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	return ended, endAt, nil
}

func publishSessionEnded(ctx context.Context, events EventPublisher, sess *model.Session) {
	for _, id := range []string{sess.ParticipantA, sess.ParticipantB} {
		event, err := sse.NewEvent("session_ended", map[string]any{
			"sessionId": sess.ID,
		})
		if err != nil {
			return
		}
		if perr := events.Publish(ctx, id, event); perr != nil {
			log.Warn().Err(perr).Str("userId", id).Msg("failed to publish session_ended event")
		}
	}
}
