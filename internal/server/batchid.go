package server

import "github.com/google/uuid"

// BatchIDGenerator produces the id that correlates one batch's log lines
// and response.
type BatchIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 batch ids.
//
// UUIDv7 embeds a millisecond timestamp, so ids sort by creation time,
// which keeps log correlation readable.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
