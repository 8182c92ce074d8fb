package domain

import (
	"fmt"
	"time"
)

// Stream identifies which kind of remote file a cursor tracks.
type Stream string

const (
	// StreamLog is the unstructured server log (joins, leaves, kills, deaths,
	// world events).
	StreamLog Stream = "log"
	// StreamKillFeed is the structured quoted-CSV kill record export.
	StreamKillFeed Stream = "killfeed"
)

// ParseStream validates a stream name from user input.
func ParseStream(s string) (Stream, error) {
	switch Stream(s) {
	case StreamLog, StreamKillFeed:
		return Stream(s), nil
	}
	return "", fmt.Errorf("unknown stream %q", s)
}

// NoLine is the LastLine sentinel meaning "nothing read from this file yet".
const NoLine int64 = -1

// StreamCursor tracks ingestion progress for one (server, stream) pair.
// Only the owning ingestion cycle mutates it, and only after a successful
// batch; it never regresses.
type StreamCursor struct {
	ServerID    int64     `json:"server_id"`
	Stream      Stream    `json:"stream"`
	LastFile    string    `json:"last_file"`
	LastLine    int64     `json:"last_line"`
	LastTouched time.Time `json:"last_touched"`
}

// NewStreamCursor returns the cursor state of a never-ingested stream.
func NewStreamCursor(serverID int64, stream Stream) StreamCursor {
	return StreamCursor{
		ServerID: serverID,
		Stream:   stream,
		LastLine: NoLine,
	}
}
