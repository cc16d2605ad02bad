package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	CleanupJobInterval = 5 * time.Minute
	MatchLoopInterval  = 2 * time.Second
)

// How many queue rows a single pairing transaction inspects.
const PairCandidateLimit = 50

// Grace period before an ended session both participants have vacated
// is purged by the cleanup job.
const EndedSessionRetention = 24 * time.Hour

// Message log bounds per session
const (
	MaxMessageLength      = 2000
	MaxMessagesPerSession = 500
)

// Per-user rate limits (sliding one-minute window)
const (
	EnqueueRateLimitPerMin = 10
	MessageRateLimitPerMin = 60
)
