package model

import (
	"time"
)

type SessionStatus string

const (
	SessionStatusVideo SessionStatus = "video"
	SessionStatusChat  SessionStatus = "chat"
	SessionStatusEnded SessionStatus = "ended"
)

// Session is a paired two-phase meeting: a timed video call followed by
// a timed text chat. The phase boundaries are fixed at creation;
// ChatEndsAt > VideoEndsAt > StartedAt always holds.
type Session struct {
	ID           string        `db:"id" json:"id"`
	ParticipantA string        `db:"participant_a" json:"participantA"`
	ParticipantB string        `db:"participant_b" json:"participantB"`
	Status       SessionStatus `db:"status" json:"status"`
	StartedAt    time.Time     `db:"started_at" json:"startedAt"`
	VideoEndsAt  time.Time     `db:"video_ends_at" json:"videoEndsAt"`
	ChatEndsAt   time.Time     `db:"chat_ends_at" json:"chatEndsAt"`
	EndedAt      *time.Time    `db:"ended_at" json:"endedAt,omitempty"`
	EndedBy      *string       `db:"ended_by" json:"endedBy,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updatedAt"`
}

func (s *Session) HasParticipant(userID string) bool {
	return s.ParticipantA == userID || s.ParticipantB == userID
}

// PartnerOf returns the other participant's id.
func (s *Session) PartnerOf(userID string) string {
	if s.ParticipantA == userID {
		return s.ParticipantB
	}
	return s.ParticipantA
}

// PhaseAt computes the authoritative phase from wall clock time.
// An explicit end always wins; otherwise the stored timestamps decide,
// never a client timer.
func (s *Session) PhaseAt(now time.Time) SessionStatus {
	if s.Status == SessionStatusEnded {
		return SessionStatusEnded
	}
	if !now.Before(s.ChatEndsAt) {
		return SessionStatusEnded
	}
	if !now.Before(s.VideoEndsAt) {
		return SessionStatusChat
	}
	return SessionStatusVideo
}

// PhaseEndsAt returns when the given live phase expires.
func (s *Session) PhaseEndsAt(phase SessionStatus) time.Time {
	if phase == SessionStatusVideo {
		return s.VideoEndsAt
	}
	return s.ChatEndsAt
}

type CreateSessionParams struct {
	ID           string
	ParticipantA string
	ParticipantB string
	StartedAt    time.Time
	VideoEndsAt  time.Time
	ChatEndsAt   time.Time
}

// PeerSignal is one participant's slot in the signaling exchange. The
// token is opaque: the server relays it without interpreting it.
type PeerSignal struct {
	SessionID string    `db:"session_id" json:"sessionId"`
	UserID    string    `db:"user_id" json:"userId"`
	Token     *string   `db:"token" json:"token"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
