package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zonewatch/zonewatch/internal/domain"
)

func TestRender(t *testing.T) {
	srv := &domain.ServerConnection{ID: 1, TenantID: "t1", Name: "EU #1"}
	ts := time.Now()

	cases := []struct {
		name string
		ev   *domain.ParsedEvent
		want string
	}{
		{
			"join",
			&domain.ParsedEvent{Kind: domain.EventJoin, Timestamp: ts, Join: &domain.JoinEvent{Player: "Alice"}},
			"Alice connected to EU #1",
		},
		{
			"leave",
			&domain.ParsedEvent{Kind: domain.EventLeave, Timestamp: ts, Leave: &domain.LeaveEvent{Player: "Alice"}},
			"Alice disconnected from EU #1",
		},
		{
			"kill",
			&domain.ParsedEvent{Kind: domain.EventKill, Timestamp: ts, Kill: &domain.KillEvent{
				Killer: "Alice", Victim: "Bob", Weapon: "AK74", DistanceMeters: 150,
			}},
			"Alice killed Bob with AK74 from 150m",
		},
		{
			"death",
			&domain.ParsedEvent{Kind: domain.EventDeath, Timestamp: ts, Death: &domain.DeathEvent{
				Player: "Bob", Cause: "radiation",
			}},
			"Bob died (radiation)",
		},
		{
			"airdrop",
			&domain.ParsedEvent{Kind: domain.EventWorldStatus, Timestamp: ts, World: &domain.WorldStatusEvent{
				Kind: domain.WorldAirdrop, Status: "Flying",
			}},
			"airdrop is now Flying",
		},
		{
			"mission",
			&domain.ParsedEvent{Kind: domain.EventWorldStatus, Timestamp: ts, World: &domain.WorldStatusEvent{
				Kind: domain.WorldMission, Name: "Convoy", Status: "Active",
			}},
			"mission 'Convoy' is now Active",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Render(srv, tc.ev))
		})
	}
}

type recordingSink struct{ n int }

func (r *recordingSink) Publish(context.Context, *domain.ServerConnection, *domain.ParsedEvent) {
	r.n++
}

func TestFanout(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	fan := Fanout{a, b}

	srv := &domain.ServerConnection{ID: 1}
	ev := &domain.ParsedEvent{Kind: domain.EventJoin, Join: &domain.JoinEvent{Player: "Alice"}}
	fan.Publish(context.Background(), srv, ev)
	fan.Publish(context.Background(), srv, ev)

	assert.Equal(t, 2, a.n)
	assert.Equal(t, 2, b.n)
}
