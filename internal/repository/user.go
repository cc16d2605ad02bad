package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pairline/match-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.UserRecord, error)
	// Ensure creates a bare directory record for id if none exists.
	Ensure(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserRecord, error)
	// SetActiveSession points the user at their live session, creating
	// the directory record if it is missing.
	SetActiveSession(ctx context.Context, userID, sessionID string) error
	// ClearActiveSession vacates the session pointer and records the
	// session end, which starts the cooldown window.
	ClearActiveSession(ctx context.Context, userID string, endedAt time.Time) error
	// DetachSession drops a stale session pointer without touching the
	// cooldown timestamp.
	DetachSession(ctx context.Context, userID string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

// userDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type userDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type userRepo struct {
	db userDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.UserRecord, error) {
	var user model.UserRecord
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) Ensure(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name)
		VALUES ($1, '')
		ON CONFLICT (id) DO NOTHING
	`, id)
	return err
}

func (r *userRepo) UpdateProfile(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserRecord, error) {
	var user model.UserRecord
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (id, display_name, gender, bio, birth_year)
		VALUES ($1, COALESCE($2, ''), $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = COALESCE($2, users.display_name),
			gender = COALESCE($3, users.gender),
			bio = COALESCE($4, users.bio),
			birth_year = COALESCE($5, users.birth_year),
			updated_at = NOW()
		RETURNING *
	`, id, params.DisplayName, params.Gender, params.Bio, params.BirthYear)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) SetActiveSession(ctx context.Context, userID, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, active_session_id)
		VALUES ($1, '', $2)
		ON CONFLICT (id) DO UPDATE SET
			active_session_id = $2,
			updated_at = NOW()
	`, userID, sessionID)
	return err
}

func (r *userRepo) ClearActiveSession(ctx context.Context, userID string, endedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			active_session_id = NULL,
			last_session_end = $2,
			updated_at = NOW()
		WHERE id = $1
	`, userID, endedAt)
	return err
}

func (r *userRepo) DetachSession(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			active_session_id = NULL,
			updated_at = NOW()
		WHERE id = $1
	`, userID)
	return err
}
