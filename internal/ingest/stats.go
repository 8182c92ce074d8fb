package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// PlayerStore is the player persistence the aggregator needs. FindPlayer
// returns (nil, nil) for an unknown name.
type PlayerStore interface {
	FindPlayer(ctx context.Context, tenantID, name string) (*domain.PlayerStat, error)
	SavePlayer(ctx context.Context, p *domain.PlayerStat) error
}

// Aggregator applies parsed events to per-player aggregates. It is one of
// two independent projections of the event stream; the kill record log is
// the other, and neither feeds the other.
type Aggregator struct {
	players PlayerStore
	log     zerolog.Logger
}

// NewAggregator creates an aggregator over the given player store.
func NewAggregator(players PlayerStore, log zerolog.Logger) *Aggregator {
	return &Aggregator{players: players, log: log}
}

// Apply updates player aggregates for one event. Join events create the
// player lazily; Leave and WorldStatus events change nothing.
func (a *Aggregator) Apply(ctx context.Context, tenantID string, ev *domain.ParsedEvent) error {
	switch ev.Kind {
	case domain.EventKill:
		return a.applyKill(ctx, tenantID, ev)
	case domain.EventDeath:
		return a.applyDeath(ctx, tenantID, ev)
	case domain.EventJoin:
		_, err := a.findOrCreate(ctx, tenantID, ev.Join.Player)
		return err
	default:
		return nil
	}
}

func (a *Aggregator) applyKill(ctx context.Context, tenantID string, ev *domain.ParsedEvent) error {
	kill := ev.Kill

	killer, err := a.findOrCreate(ctx, tenantID, kill.Killer)
	if err != nil {
		return err
	}
	// A self-kill (grenade, fall damage credited as a kill) names the same
	// player twice; both mutations must land on one loaded record or the
	// second save would clobber the first.
	victim := killer
	if kill.Victim != kill.Killer {
		victim, err = a.findOrCreate(ctx, tenantID, kill.Victim)
		if err != nil {
			return err
		}
	}

	killer.Kills++
	victim.Deaths++

	// Sticky heuristics: the first weapon/opponent seen locks in, and its
	// count only grows on exact repeats. Not a most-frequent counter.
	stickyBump(&killer.FavoriteWeapon, &killer.FavoriteWeaponKills, kill.Weapon)
	stickyBump(&killer.TopVictim, &killer.TopVictimKills, kill.Victim)
	stickyBump(&victim.TopNemesis, &victim.TopNemesisDeaths, kill.Killer)

	killer.UpdatedAt = ev.Timestamp
	victim.UpdatedAt = ev.Timestamp

	if err := a.players.SavePlayer(ctx, killer); err != nil {
		return fmt.Errorf("saving killer %q: %w", killer.Name, err)
	}
	if victim != killer {
		if err := a.players.SavePlayer(ctx, victim); err != nil {
			return fmt.Errorf("saving victim %q: %w", victim.Name, err)
		}
	}
	return nil
}

func (a *Aggregator) applyDeath(ctx context.Context, tenantID string, ev *domain.ParsedEvent) error {
	p, err := a.findOrCreate(ctx, tenantID, ev.Death.Player)
	if err != nil {
		return err
	}
	// Environmental deaths count as deaths but touch no PvP counters.
	p.Deaths++
	p.UpdatedAt = ev.Timestamp
	if err := a.players.SavePlayer(ctx, p); err != nil {
		return fmt.Errorf("saving player %q: %w", p.Name, err)
	}
	return nil
}

func (a *Aggregator) findOrCreate(ctx context.Context, tenantID, name string) (*domain.PlayerStat, error) {
	p, err := a.players.FindPlayer(ctx, tenantID, name)
	if err != nil {
		return nil, fmt.Errorf("loading player %q: %w", name, err)
	}
	if p == nil {
		p = &domain.PlayerStat{TenantID: tenantID, Name: name}
		if err := a.players.SavePlayer(ctx, p); err != nil {
			return nil, fmt.Errorf("creating player %q: %w", name, err)
		}
	}
	return p, nil
}

// stickyBump locks value onto the first seen entry and increments the
// count only when seen equals the stored value.
func stickyBump(value *string, count *int64, seen string) {
	if *value == "" {
		*value = seen
		*count = 1
		return
	}
	if *value == seen {
		*count++
	}
}
