package notify

import (
	"context"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// Sink mirrors the ingestion sink contract so destinations can be composed
// without importing the ingest package.
type Sink interface {
	Publish(ctx context.Context, srv *domain.ServerConnection, ev *domain.ParsedEvent)
}

// Fanout delivers each event to every configured sink in order.
type Fanout []Sink

// Publish forwards the event to all sinks.
func (f Fanout) Publish(ctx context.Context, srv *domain.ServerConnection, ev *domain.ParsedEvent) {
	for _, s := range f {
		s.Publish(ctx, srv, ev)
	}
}
