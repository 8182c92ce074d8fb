package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/zonewatch/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTenant(t *testing.T, s *Store, id string, premium bool) {
	t.Helper()
	require.NoError(t, s.UpsertTenant(context.Background(), &domain.Tenant{
		ID: id, Name: id, Premium: premium,
	}))
}

func TestTenantRoundtrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seedTenant(t, s, "guild-1", false)
	got, err := s.GetTenant(ctx, "guild-1")
	require.NoError(t, err)
	assert.False(t, got.Premium)

	seedTenant(t, s, "guild-1", true)
	got, err = s.GetTenant(ctx, "guild-1")
	require.NoError(t, err)
	assert.True(t, got.Premium, "upsert updates the premium flag")

	_, err = s.GetTenant(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsEntitled(t *testing.T) {
	s := testStore(t)
	seedTenant(t, s, "free", false)
	seedTenant(t, s, "paid", true)

	cases := []struct {
		tenant, feature string
		want            bool
	}{
		{"free", domain.FeatureKillfeed, false},
		{"free", domain.FeatureLeaderboard, false},
		{"free", "stats", true},
		{"paid", domain.FeatureKillfeed, true},
		{"unknown", "stats", false},
	}
	for _, tc := range cases {
		ok, err := s.IsEntitled(tc.tenant, tc.feature)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "%s/%s", tc.tenant, tc.feature)
	}
}

func TestUpsertServerBackfillsID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedTenant(t, s, "t1", false)

	srv := &domain.ServerConnection{
		TenantID: "t1", Name: "eu-1", Host: "198.51.100.7", Port: 8822,
		Username: "ftp", Password: "secret", InstanceID: 33041,
	}
	require.NoError(t, s.UpsertServer(ctx, srv))
	assert.NotZero(t, srv.ID)

	// Same (tenant, host, port) updates in place and keeps the ID.
	id := srv.ID
	srv.Name = "eu-1-renamed"
	require.NoError(t, s.UpsertServer(ctx, srv))
	assert.Equal(t, id, srv.ID)

	servers, err := s.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "eu-1-renamed", servers[0].Name)

	got, err := s.GetServerByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", got.Host)

	_, err = s.GetServerByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCursorRoundtrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedTenant(t, s, "t1", false)

	srv := &domain.ServerConnection{TenantID: "t1", Host: "h", Port: 22, InstanceID: 1}
	require.NoError(t, s.UpsertServer(ctx, srv))

	// Never-ingested pair yields the fresh sentinel cursor.
	cur, err := s.LoadCursor(ctx, srv.ID, domain.StreamLog)
	require.NoError(t, err)
	assert.Empty(t, cur.LastFile)
	assert.Equal(t, domain.NoLine, cur.LastLine)

	cur.LastFile = "server_2025.04.10.log"
	cur.LastLine = 41
	cur.LastTouched = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveCursor(ctx, cur))

	got, err := s.LoadCursor(ctx, srv.ID, domain.StreamLog)
	require.NoError(t, err)
	assert.Equal(t, cur.LastFile, got.LastFile)
	assert.Equal(t, int64(41), got.LastLine)
	assert.True(t, cur.LastTouched.Equal(got.LastTouched))

	// Streams are independent cursors.
	feed, err := s.LoadCursor(ctx, srv.ID, domain.StreamKillFeed)
	require.NoError(t, err)
	assert.Equal(t, domain.NoLine, feed.LastLine)

	// Cascade: deleting the server removes its cursors.
	require.NoError(t, s.DeleteServer(ctx, srv.ID))
	cur, err = s.LoadCursor(ctx, srv.ID, domain.StreamLog)
	require.NoError(t, err)
	assert.Empty(t, cur.LastFile)
}

func TestPlayerUpsertAndTop(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedTenant(t, s, "t1", false)

	p, err := s.FindPlayer(ctx, "t1", "Alice")
	require.NoError(t, err)
	assert.Nil(t, p, "unknown player is (nil, nil), not an error")

	alice := &domain.PlayerStat{
		TenantID: "t1", Name: "Alice", Kills: 3, Deaths: 1,
		FavoriteWeapon: "AK74", FavoriteWeaponKills: 2,
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.SavePlayer(ctx, alice))
	assert.NotZero(t, alice.ID)

	alice.Kills = 4
	require.NoError(t, s.SavePlayer(ctx, alice))

	bob := &domain.PlayerStat{TenantID: "t1", Name: "Bob", Kills: 1, Deaths: 4, UpdatedAt: time.Now()}
	require.NoError(t, s.SavePlayer(ctx, bob))

	top, err := s.TopPlayers(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Alice", top[0].Name)
	assert.Equal(t, int64(4), top[0].Kills)
	assert.Equal(t, "AK74", top[0].FavoriteWeapon)

	other, err := s.TopPlayers(ctx, "t2", 10)
	require.NoError(t, err)
	assert.Empty(t, other, "players are tenant-scoped")
}

func TestKillRecords(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedTenant(t, s, "t1", false)

	srv := &domain.ServerConnection{TenantID: "t1", Host: "h", Port: 22, InstanceID: 1}
	require.NoError(t, s.UpsertServer(ctx, srv))

	base := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	for i, killer := range []string{"Alice", "Bob", "Carol"} {
		rec := &domain.KillRecord{
			ID:       string(rune('a' + i)),
			TenantID: "t1", ServerID: srv.ID,
			Killer: killer, Victim: "Dave", Weapon: "AK74",
			DistanceMeters: 100 + i,
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			RawLine:        "raw",
		}
		require.NoError(t, s.InsertKillRecord(ctx, rec))
	}

	recent, err := s.RecentKills(ctx, "t1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Carol", recent[0].Killer, "newest first")

	byServer, err := s.ServerKills(ctx, srv.ID, 50)
	require.NoError(t, err)
	assert.Len(t, byServer, 3)

	var all []string
	err = s.AllKillRecords(ctx, func(rec domain.KillRecord) error {
		all = append(all, rec.Killer)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, all, "export streams oldest first")
}

func TestUsers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, "admin", "hash", true))
	u, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	assert.Error(t, s.CreateUser(ctx, "admin", "hash2", false), "usernames are unique")

	require.NoError(t, s.DeleteUser(ctx, "admin"))
	_, err = s.GetUserByUsername(ctx, "admin")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, "admin"), ErrNotFound)
}
