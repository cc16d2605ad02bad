package model

import (
	"time"
)

// ClientStatus is the stable, typed state a polling or subscribed
// client sees.
type ClientStatus string

const (
	StatusIdle      ClientStatus = "idle"
	StatusQueued    ClientStatus = "queued"
	StatusInSession ClientStatus = "in_session"
	StatusInChat    ClientStatus = "in_chat"
	StatusEnded     ClientStatus = "ended"
	StatusCooldown  ClientStatus = "cooldown"
)

// StatusView is the phase view returned to a caller. Only the fields
// relevant to the current status are populated; PeerSignals is present
// during the video phase so each side can discover the other's
// signaling token.
type StatusView struct {
	Status        ClientStatus       `json:"status"`
	SessionID     *string            `json:"sessionId,omitempty"`
	PartnerID     *string            `json:"partnerId,omitempty"`
	PartnerName   *string            `json:"partnerName,omitempty"`
	TimeLeftMS    *int64             `json:"timeLeft,omitempty"`
	PeerSignals   map[string]*string `json:"peerSignals,omitempty"`
	QueuedAt      *time.Time         `json:"queuedAt,omitempty"`
	QueuePosition *int               `json:"queuePosition,omitempty"`
	TotalInQueue  *int               `json:"totalInQueue,omitempty"`
	CooldownEnd   *time.Time         `json:"cooldownEnd,omitempty"`
}
