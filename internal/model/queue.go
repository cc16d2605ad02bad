package model

import (
	"time"
)

// WaitingEntry is one row of the matchmaking queue. Gender is the
// user's own stated gender (copied from the directory at enqueue time,
// used for opposite-gender preferred pairing); the Pref* fields are the
// user's partner filters.
type WaitingEntry struct {
	UserID     string    `db:"user_id" json:"userId"`
	Gender     *Gender   `db:"gender" json:"gender,omitempty"`
	PrefGender *Gender   `db:"pref_gender" json:"prefGender,omitempty"`
	PrefMinAge *int      `db:"pref_min_age" json:"prefMinAge,omitempty"`
	PrefMaxAge *int      `db:"pref_max_age" json:"prefMaxAge,omitempty"`
	JoinedAt   time.Time `db:"joined_at" json:"joinedAt"`
}

// Preferences are the optional partner filters supplied on enqueue.
type Preferences struct {
	Gender *Gender `json:"gender,omitempty"`
	MinAge *int    `json:"minAge,omitempty"`
	MaxAge *int    `json:"maxAge,omitempty"`
}
