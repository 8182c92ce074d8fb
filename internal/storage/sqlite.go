package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/zonewatch/zonewatch/internal/domain"
	_ "modernc.org/sqlite"
)

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// The Z suffix ensures the Go sqlite driver parses it back as UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store provides database access
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Tenant methods ---

// UpsertTenant creates or updates a tenant
func (s *Store) UpsertTenant(ctx context.Context, t *domain.Tenant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, premium)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			premium = excluded.premium
	`, t.ID, t.Name, boolToInt(t.Premium))
	return err
}

// GetTenant returns a tenant by ID
func (s *Store) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	var premium int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, premium, created_at FROM tenants WHERE id = ?
	`, id).Scan(&t.ID, &t.Name, &premium, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Premium = premium != 0
	return &t, nil
}

// IsEntitled reports whether a tenant may use a premium feature. Unknown
// tenants are not entitled to anything.
func (s *Store) IsEntitled(tenantID, feature string) (bool, error) {
	t, err := s.GetTenant(context.Background(), tenantID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch feature {
	case domain.FeatureKillfeed, domain.FeatureLeaderboard:
		return t.Premium, nil
	default:
		return true, nil
	}
}

// --- Server methods ---

// UpsertServer creates or updates a server connection
func (s *Store) UpsertServer(ctx context.Context, srv *domain.ServerConnection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO servers (tenant_id, name, host, port, username, password, instance_id, channel_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, host, port) DO UPDATE SET
			name = excluded.name,
			username = excluded.username,
			password = excluded.password,
			instance_id = excluded.instance_id,
			channel_id = excluded.channel_id
	`, srv.TenantID, srv.Name, srv.Host, srv.Port, srv.Username, srv.Password, srv.InstanceID, nullString(srv.ChannelID))
	if err != nil {
		return err
	}

	// Always query for the ID (LastInsertId unreliable with ON CONFLICT)
	return s.db.QueryRowContext(ctx,
		"SELECT id FROM servers WHERE tenant_id = ? AND host = ? AND port = ?",
		srv.TenantID, srv.Host, srv.Port,
	).Scan(&srv.ID)
}

const serverColumns = "id, tenant_id, name, host, port, username, password, instance_id, channel_id, created_at"

// ListServers returns all registered servers across tenants
func (s *Store) ListServers(ctx context.Context) ([]domain.ServerConnection, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+serverColumns+" FROM servers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []domain.ServerConnection
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, *srv)
	}
	return servers, rows.Err()
}

// GetServerByID returns a server by ID
func (s *Store) GetServerByID(ctx context.Context, id int64) (*domain.ServerConnection, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+serverColumns+" FROM servers WHERE id = ?", id)
	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return srv, err
}

// DeleteServer removes a server and, via cascade, its cursors
func (s *Store) DeleteServer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM servers WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Cursor methods ---

// LoadCursor returns the cursor for a (server, stream) pair. A pair never
// ingested yet yields the fresh cursor with the -1 line sentinel.
func (s *Store) LoadCursor(ctx context.Context, serverID int64, stream domain.Stream) (domain.StreamCursor, error) {
	cur := domain.NewStreamCursor(serverID, stream)
	var touched sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT last_file, last_line, last_touched FROM cursors WHERE server_id = ? AND stream = ?
	`, serverID, stream).Scan(&cur.LastFile, &cur.LastLine, &touched)
	if errors.Is(err, sql.ErrNoRows) {
		return cur, nil
	}
	if err != nil {
		return cur, err
	}
	if touched.Valid {
		cur.LastTouched = touched.Time
	}
	return cur, nil
}

// SaveCursor upserts the cursor for its (server, stream) pair
func (s *Store) SaveCursor(ctx context.Context, cur domain.StreamCursor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cursors (server_id, stream, last_file, last_line, last_touched)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(server_id, stream) DO UPDATE SET
			last_file = excluded.last_file,
			last_line = excluded.last_line,
			last_touched = excluded.last_touched
	`, cur.ServerID, cur.Stream, cur.LastFile, cur.LastLine, formatTimestamp(cur.LastTouched))
	return err
}

// --- Player methods ---

const playerColumns = `id, tenant_id, name, kills, deaths,
	favorite_weapon, favorite_weapon_kills,
	top_victim, top_victim_kills,
	top_nemesis, top_nemesis_deaths, updated_at`

// FindPlayer returns a player aggregate by tenant and name, or (nil, nil)
// if the name has never been seen.
func (s *Store) FindPlayer(ctx context.Context, tenantID, name string) (*domain.PlayerStat, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+playerColumns+" FROM players WHERE tenant_id = ? AND name = ?",
		tenantID, name)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// SavePlayer upserts a player aggregate keyed on (tenant, name)
func (s *Store) SavePlayer(ctx context.Context, p *domain.PlayerStat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (tenant_id, name, kills, deaths,
			favorite_weapon, favorite_weapon_kills,
			top_victim, top_victim_kills,
			top_nemesis, top_nemesis_deaths, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, name) DO UPDATE SET
			kills = excluded.kills,
			deaths = excluded.deaths,
			favorite_weapon = excluded.favorite_weapon,
			favorite_weapon_kills = excluded.favorite_weapon_kills,
			top_victim = excluded.top_victim,
			top_victim_kills = excluded.top_victim_kills,
			top_nemesis = excluded.top_nemesis,
			top_nemesis_deaths = excluded.top_nemesis_deaths,
			updated_at = excluded.updated_at
	`, p.TenantID, p.Name, p.Kills, p.Deaths,
		p.FavoriteWeapon, p.FavoriteWeaponKills,
		p.TopVictim, p.TopVictimKills,
		p.TopNemesis, p.TopNemesisDeaths, nullTimestamp(p.UpdatedAt))
	if err != nil {
		return err
	}

	return s.db.QueryRowContext(ctx,
		"SELECT id FROM players WHERE tenant_id = ? AND name = ?",
		p.TenantID, p.Name,
	).Scan(&p.ID)
}

// TopPlayers returns a tenant's players ordered by kills
func (s *Store) TopPlayers(ctx context.Context, tenantID string, limit int) ([]domain.PlayerStat, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+playerColumns+" FROM players WHERE tenant_id = ? ORDER BY kills DESC, deaths ASC LIMIT ?",
		tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []domain.PlayerStat
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// --- Kill record methods ---

// InsertKillRecord appends one immutable kill fact
func (s *Store) InsertKillRecord(ctx context.Context, rec *domain.KillRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kill_records (id, tenant_id, server_id, killer, victim, weapon, distance_m, ts, raw_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TenantID, rec.ServerID, rec.Killer, rec.Victim, rec.Weapon,
		rec.DistanceMeters, formatTimestamp(rec.Timestamp), rec.RawLine)
	return err
}

const killColumns = "id, tenant_id, server_id, killer, victim, weapon, distance_m, ts, raw_line"

// RecentKills returns a tenant's newest kill records
func (s *Store) RecentKills(ctx context.Context, tenantID string, limit int) ([]domain.KillRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+killColumns+" FROM kill_records WHERE tenant_id = ? ORDER BY ts DESC LIMIT ?",
		tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectKills(rows)
}

// ServerKills returns the newest kill records for one server
func (s *Store) ServerKills(ctx context.Context, serverID int64, limit int) ([]domain.KillRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+killColumns+" FROM kill_records WHERE server_id = ? ORDER BY ts DESC LIMIT ?",
		serverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectKills(rows)
}

// AllKillRecords streams every kill record in insertion order, for export
func (s *Store) AllKillRecords(ctx context.Context, fn func(domain.KillRecord) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+killColumns+" FROM kill_records ORDER BY ts")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanKill(rows)
		if err != nil {
			return err
		}
		if err := fn(*rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// --- User methods ---

// User is an API account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser adds a user with a pre-hashed password
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin) VALUES (?, ?, ?)
	`, username, passwordHash, boolToInt(isAdmin))
	return err
}

// GetUserByUsername returns a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	var admin int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &admin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.IsAdmin = admin != 0
	return &u, nil
}

// ListUsers returns all users
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var admin int
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &admin, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.IsAdmin = admin != 0
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserPassword replaces a user's password hash
func (s *Store) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user by username
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
