package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/pairline/match-server-go/internal/model"
)

type MessageRepository interface {
	Append(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	// ListBySession returns the session's messages in append order.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) MessageRepository
}

type messageDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type messageRepo struct {
	db messageDB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) WithTx(tx *sqlx.Tx) MessageRepository {
	return &messageRepo{db: tx}
}

func (r *messageRepo) Append(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO session_messages (id, session_id, sender_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.ID, params.SessionID, params.SenderID, params.Body)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM session_messages
		WHERE session_id = $1
		ORDER BY created_at, id
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM session_messages WHERE session_id = $1
	`, sessionID)
	return count, err
}
