package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pairline/match-server-go/internal/model"
)

type QueueRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.WaitingEntry, error)
	Insert(ctx context.Context, entry model.WaitingEntry) error
	// Delete removes the user's waiting entry if present. Missing
	// entries are not an error.
	Delete(ctx context.Context, userID string) error
	// CandidatesForUpdate returns the oldest waiting entries whose user
	// has no live session, locking the rows against concurrent pairing
	// transactions. Rows already claimed by another in-flight pairing
	// are skipped rather than waited on.
	CandidatesForUpdate(ctx context.Context, limit int) ([]model.WaitingEntry, error)
	CountWaiting(ctx context.Context) (int, error)
	// PositionOf reports the 1-based queue position for an entry that
	// joined at the given time.
	PositionOf(ctx context.Context, joinedAt time.Time) (int, error)
	DeleteStale(ctx context.Context, olderThan time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) QueueRepository
}

type queueDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type queueRepo struct {
	db queueDB
}

func NewQueueRepository(db *sqlx.DB) QueueRepository {
	return &queueRepo{db: db}
}

func (r *queueRepo) WithTx(tx *sqlx.Tx) QueueRepository {
	return &queueRepo{db: tx}
}

func (r *queueRepo) FindByUserID(ctx context.Context, userID string) (*model.WaitingEntry, error) {
	var entry model.WaitingEntry
	err := r.db.GetContext(ctx, &entry, `
		SELECT * FROM matchmaking_queue WHERE user_id = $1
	`, userID)
	return HandleNotFound(&entry, err)
}

func (r *queueRepo) Insert(ctx context.Context, entry model.WaitingEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO matchmaking_queue (user_id, gender, pref_gender, pref_min_age, pref_max_age, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.UserID, entry.Gender, entry.PrefGender, entry.PrefMinAge, entry.PrefMaxAge, entry.JoinedAt)
	return err
}

func (r *queueRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM matchmaking_queue WHERE user_id = $1
	`, userID)
	return err
}

func (r *queueRepo) CandidatesForUpdate(ctx context.Context, limit int) ([]model.WaitingEntry, error) {
	entries := []model.WaitingEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT q.* FROM matchmaking_queue q
		JOIN users u ON u.id = q.user_id
		WHERE u.active_session_id IS NULL
		ORDER BY q.joined_at
		LIMIT $1
		FOR UPDATE OF q SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueRepo) CountWaiting(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM matchmaking_queue
	`)
	return count, err
}

func (r *queueRepo) PositionOf(ctx context.Context, joinedAt time.Time) (int, error) {
	var position int
	err := r.db.GetContext(ctx, &position, `
		SELECT COUNT(*) FROM matchmaking_queue WHERE joined_at <= $1
	`, joinedAt)
	return position, err
}

func (r *queueRepo) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM matchmaking_queue WHERE joined_at < $1
	`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
