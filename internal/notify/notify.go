// Package notify delivers human-readable event notifications. Delivery is
// fire-and-forget: a sink failure is logged and never reaches the caller,
// so a broken destination can't stall ingestion.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// Render produces the one-line human rendering of an event.
func Render(srv *domain.ServerConnection, ev *domain.ParsedEvent) string {
	switch ev.Kind {
	case domain.EventJoin:
		return fmt.Sprintf("%s connected to %s", ev.Join.Player, srv.Name)
	case domain.EventLeave:
		return fmt.Sprintf("%s disconnected from %s", ev.Leave.Player, srv.Name)
	case domain.EventKill:
		return fmt.Sprintf("%s killed %s with %s from %dm",
			ev.Kill.Killer, ev.Kill.Victim, ev.Kill.Weapon, ev.Kill.DistanceMeters)
	case domain.EventDeath:
		return fmt.Sprintf("%s died (%s)", ev.Death.Player, ev.Death.Cause)
	case domain.EventWorldStatus:
		if ev.World.Name != "" {
			return fmt.Sprintf("%s '%s' is now %s", ev.World.Kind, ev.World.Name, ev.World.Status)
		}
		return fmt.Sprintf("%s is now %s", ev.World.Kind, ev.World.Status)
	default:
		return ev.Kind
	}
}

// LogSink writes notifications to the application log. Used when no
// message broker is configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log-only sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Publish logs the rendered event.
func (s *LogSink) Publish(_ context.Context, srv *domain.ServerConnection, ev *domain.ParsedEvent) {
	s.log.Info().
		Str("tenant", srv.TenantID).
		Int64("server", srv.ID).
		Str("kind", ev.Kind).
		Msg(Render(srv, ev))
}
