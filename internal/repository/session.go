package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pairline/match-server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindByIDForUpdate locks the session row for the duration of the
	// enclosing transaction.
	FindByIDForUpdate(ctx context.Context, id string) (*model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// CountLiveByParticipant reports how many sessions the user appears
	// in that are neither explicitly ended nor past their clock. Rows
	// that expired unobserved do not count; more than one live session
	// is an invariant violation.
	CountLiveByParticipant(ctx context.Context, userID string) (int, error)
	// MarkChat records the observed video-to-chat transition. A no-op
	// unless the session is still in the video phase.
	MarkChat(ctx context.Context, id string) error
	// MarkEnded transitions the session to its terminal state. A no-op
	// if it already ended, so ending twice stays idempotent.
	MarkEnded(ctx context.Context, id string, endedBy *string, endedAt time.Time) error
	GetSignals(ctx context.Context, sessionID string) (map[string]*string, error)
	UpsertSignal(ctx context.Context, sessionID, userID string, token *string) error
	// DeleteVacatedEnded purges ended sessions no directory record
	// points at anymore.
	DeleteVacatedEnded(ctx context.Context, endedBefore time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (id, participant_a, participant_b, status, started_at, video_ends_at, chat_ends_at)
		VALUES ($1, $2, $3, 'video', $4, $5, $6)
		RETURNING *
	`, params.ID, params.ParticipantA, params.ParticipantB, params.StartedAt, params.VideoEndsAt, params.ChatEndsAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) CountLiveByParticipant(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM sessions
		WHERE status <> 'ended'
		AND chat_ends_at > NOW()
		AND (participant_a = $1 OR participant_b = $1)
	`, userID)
	return count, err
}

func (r *sessionRepo) MarkChat(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'chat',
			updated_at = NOW()
		WHERE id = $1 AND status = 'video'
	`, id)
	return err
}

func (r *sessionRepo) MarkEnded(ctx context.Context, id string, endedBy *string, endedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'ended',
			ended_at = $2,
			ended_by = $3,
			updated_at = NOW()
		WHERE id = $1 AND status <> 'ended'
	`, id, endedAt, endedBy)
	return err
}

func (r *sessionRepo) GetSignals(ctx context.Context, sessionID string) (map[string]*string, error) {
	signals := []model.PeerSignal{}
	err := r.db.SelectContext(ctx, &signals, `
		SELECT * FROM session_signals WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*string, len(signals))
	for _, s := range signals {
		result[s.UserID] = s.Token
	}
	return result, nil
}

func (r *sessionRepo) UpsertSignal(ctx context.Context, sessionID, userID string, token *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_signals (session_id, user_id, token, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session_id, user_id) DO UPDATE SET
			token = $3,
			updated_at = NOW()
	`, sessionID, userID, token)
	return err
}

func (r *sessionRepo) DeleteVacatedEnded(ctx context.Context, endedBefore time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions s
		WHERE s.status = 'ended'
		AND s.ended_at < $1
		AND NOT EXISTS (
			SELECT 1 FROM users u WHERE u.active_session_id = s.id
		)
	`, endedBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
