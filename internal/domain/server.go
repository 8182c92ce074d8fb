package domain

import (
	"fmt"
	"strings"
	"time"
)

// ServerConnection represents one remote game server being monitored.
// Owned by a tenant; credentials are for the server's file-transfer account.
type ServerConnection struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	InstanceID int       `json:"instance_id"`
	ChannelID  string    `json:"channel_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RootDir returns the remote directory holding this server's log and
// record files. Hosting providers lay instances out as
// <host-with-dashes>_<instance>/, so the path is derived, never stored.
func (s *ServerConnection) RootDir() string {
	host := strings.ReplaceAll(s.Host, ".", "-")
	return fmt.Sprintf("%s_%d", host, s.InstanceID)
}

// Addr returns the host:port dial address for the file-transfer endpoint.
func (s *ServerConnection) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Tenant represents one isolated customer. Premium unlocks extra command
// surfaces; ingestion runs for every registered server regardless.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Premium   bool      `json:"premium"`
	CreatedAt time.Time `json:"created_at"`
}

// Entitlements is the read-only subscription gate consulted by the API
// layer. The ingestion core never calls it.
type Entitlements interface {
	IsEntitled(tenantID, feature string) (bool, error)
}

// Features gated behind a premium subscription.
const (
	FeatureKillfeed    = "killfeed"
	FeatureLeaderboard = "leaderboard"
)
