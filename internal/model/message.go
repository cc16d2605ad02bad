package model

import (
	"time"
)

// Message is one entry of a session's append-only chat log.
type Message struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"sessionId"`
	SenderID  string    `db:"sender_id" json:"senderId"`
	Body      string    `db:"body" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

type CreateMessageParams struct {
	ID        string
	SessionID string
	SenderID  string
	Body      string
}
