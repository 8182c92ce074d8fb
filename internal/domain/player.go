package domain

import "time"

// PlayerStat is the tenant-scoped aggregate for one player name, created
// lazily on first sighting and updated incrementally by the aggregator.
//
// The "favorite" fields use a first-seen-sticky heuristic: the first
// qualifying value locks in and its count only grows on exact repeats.
// This is not a true most-frequent counter.
type PlayerStat struct {
	ID                  int64     `json:"id"`
	TenantID            string    `json:"tenant_id"`
	Name                string    `json:"name"`
	Kills               int64     `json:"kills"`
	Deaths              int64     `json:"deaths"`
	FavoriteWeapon      string    `json:"favorite_weapon,omitempty"`
	FavoriteWeaponKills int64     `json:"favorite_weapon_kills"`
	TopVictim           string    `json:"top_victim,omitempty"`
	TopVictimKills      int64     `json:"top_victim_kills"`
	TopNemesis          string    `json:"top_nemesis,omitempty"`
	TopNemesisDeaths    int64     `json:"top_nemesis_deaths"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// KDRatio returns kills per death, counting zero deaths as one.
func (p *PlayerStat) KDRatio() float64 {
	deaths := p.Deaths
	if deaths == 0 {
		deaths = 1
	}
	return float64(p.Kills) / float64(deaths)
}
