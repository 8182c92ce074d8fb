package storage

import (
	"database/sql"
	"time"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// scanner is an interface satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (*domain.ServerConnection, error) {
	var srv domain.ServerConnection
	var channel sql.NullString
	if err := row.Scan(&srv.ID, &srv.TenantID, &srv.Name, &srv.Host, &srv.Port,
		&srv.Username, &srv.Password, &srv.InstanceID, &channel, &srv.CreatedAt); err != nil {
		return nil, err
	}
	srv.ChannelID = channel.String
	return &srv, nil
}

func scanPlayer(row scanner) (*domain.PlayerStat, error) {
	var p domain.PlayerStat
	var updated sql.NullTime
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Kills, &p.Deaths,
		&p.FavoriteWeapon, &p.FavoriteWeaponKills,
		&p.TopVictim, &p.TopVictimKills,
		&p.TopNemesis, &p.TopNemesisDeaths, &updated); err != nil {
		return nil, err
	}
	if updated.Valid {
		p.UpdatedAt = updated.Time
	}
	return &p, nil
}

func scanKill(row scanner) (*domain.KillRecord, error) {
	var rec domain.KillRecord
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.ServerID, &rec.Killer, &rec.Victim,
		&rec.Weapon, &rec.DistanceMeters, &rec.Timestamp, &rec.RawLine); err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectKills(rows *sql.Rows) ([]domain.KillRecord, error) {
	var records []domain.KillRecord
	for rows.Next() {
		rec, err := scanKill(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(t), Valid: true}
}
