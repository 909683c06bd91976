package miroflow

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// shortID returns an 8-hex-char random identifier, used for message-id
// prefixes and tracer sub-session names.
func shortID() string {
	return uuid.NewString()[:8]
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
