package model

import (
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// UserRecord is the directory entry the matchmaker and session manager
// consult. ActiveSessionID points at the user's single live session;
// LastSessionEnd gates re-entry into the queue.
type UserRecord struct {
	ID              string     `db:"id" json:"id"`
	DisplayName     string     `db:"display_name" json:"displayName"`
	Gender          *Gender    `db:"gender" json:"gender,omitempty"`
	Bio             *string    `db:"bio" json:"bio,omitempty"`
	BirthYear       *int       `db:"birth_year" json:"birthYear,omitempty"`
	ActiveSessionID *string    `db:"active_session_id" json:"activeSessionId,omitempty"`
	LastSessionEnd  *time.Time `db:"last_session_end" json:"lastSessionEnd,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// CooldownRemaining reports how long until the user may enqueue again.
// Zero means no cooldown is in effect.
func (u *UserRecord) CooldownRemaining(now time.Time, cooldown time.Duration) time.Duration {
	if u.LastSessionEnd == nil {
		return 0
	}
	remaining := u.LastSessionEnd.Add(cooldown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

type UpdateProfileParams struct {
	DisplayName *string `json:"displayName,omitempty"`
	Gender      *Gender `json:"gender,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	BirthYear   *int    `json:"birthYear,omitempty"`
}
