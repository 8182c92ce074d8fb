package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// natsMessage is the JSON payload published per event.
type natsMessage struct {
	TenantID  string              `json:"tenant_id"`
	ServerID  int64               `json:"server_id"`
	Server    string              `json:"server"`
	ChannelID string              `json:"channel_id,omitempty"`
	Kind      string              `json:"kind"`
	Text      string              `json:"text"`
	Event     *domain.ParsedEvent `json:"event"`
	Timestamp time.Time           `json:"timestamp"`
}

// NATSSink publishes events to a NATS subject per tenant and kind, for
// downstream bots (chat relays, webhooks) to fan out.
type NATSSink struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// NewNATSSink connects to the given NATS URL.
func NewNATSSink(url string, log zerolog.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("zonewatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NATSSink{conn: conn, log: log}, nil
}

// Publish sends the event, logging and swallowing any failure.
func (s *NATSSink) Publish(_ context.Context, srv *domain.ServerConnection, ev *domain.ParsedEvent) {
	msg := natsMessage{
		TenantID:  srv.TenantID,
		ServerID:  srv.ID,
		Server:    srv.Name,
		ChannelID: srv.ChannelID,
		Kind:      ev.Kind,
		Text:      Render(srv, ev),
		Event:     ev,
		Timestamp: ev.Timestamp,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("encoding notification")
		return
	}

	subject := fmt.Sprintf("zonewatch.events.%s.%s", srv.TenantID, ev.Kind)
	if err := s.conn.Publish(subject, data); err != nil {
		s.log.Warn().Err(err).Str("subject", subject).Msg("publishing notification")
	}
}

// Close drains and closes the connection.
func (s *NATSSink) Close() {
	if err := s.conn.Drain(); err != nil {
		s.log.Warn().Err(err).Msg("draining nats connection")
	}
}
