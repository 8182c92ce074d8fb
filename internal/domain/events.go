package domain

import "time"

// Event kinds produced by the line parsers.
const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventKill        = "kill"
	EventDeath       = "death"
	EventWorldStatus = "world_status"
)

// World event kinds carried by WorldStatus events.
const (
	WorldAirdrop = "airdrop"
	WorldMission = "mission"
)

// ParsedEvent is the tagged union produced by parsing one log or record
// line. Exactly one of the pointer fields is set, matching Kind. Events are
// ephemeral; only their effects on player stats and kill records persist.
type ParsedEvent struct {
	Kind      string            `json:"kind"`
	Timestamp time.Time         `json:"timestamp"`
	RawLine   string            `json:"-"`
	Join      *JoinEvent        `json:"join,omitempty"`
	Leave     *LeaveEvent       `json:"leave,omitempty"`
	Kill      *KillEvent        `json:"kill,omitempty"`
	Death     *DeathEvent       `json:"death,omitempty"`
	World     *WorldStatusEvent `json:"world,omitempty"`
}

// JoinEvent is emitted when a player connects to the game server.
type JoinEvent struct {
	Player string `json:"player"`
}

// LeaveEvent is emitted when a player disconnects.
type LeaveEvent struct {
	Player string `json:"player"`
}

// KillEvent is emitted for a player-versus-player kill.
type KillEvent struct {
	Killer         string `json:"killer"`
	Victim         string `json:"victim"`
	Weapon         string `json:"weapon"`
	DistanceMeters int    `json:"distance_meters"`
}

// DeathEvent is emitted for a non-PvP death (zone, anomaly, starvation...).
type DeathEvent struct {
	Player string `json:"player"`
	Cause  string `json:"cause"`
}

// WorldStatusEvent is emitted when a world event changes state.
type WorldStatusEvent struct {
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status"`
}

// KillRecord is the immutable historical fact derived from an accepted
// Kill event. Append-only; the raw source line is kept for audit.
type KillRecord struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	ServerID       int64     `json:"server_id"`
	Killer         string    `json:"killer"`
	Victim         string    `json:"victim"`
	Weapon         string    `json:"weapon"`
	DistanceMeters int       `json:"distance_meters"`
	Timestamp      time.Time `json:"timestamp"`
	RawLine        string    `json:"raw_line"`
}
