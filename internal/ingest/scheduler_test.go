package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/zonewatch/internal/domain"
)

type fakeRegistry struct {
	servers []domain.ServerConnection
	err     error
}

func (f *fakeRegistry) ListServers(context.Context) ([]domain.ServerConnection, error) {
	return f.servers, f.err
}

// perServerFiles fails transport operations for selected server IDs only.
type perServerFiles struct {
	*fakeFiles
	failing map[int64]error
}

func (f *perServerFiles) ListFiles(srv *domain.ServerConnection, dir string) ([]string, error) {
	if err := f.failing[srv.ID]; err != nil {
		return nil, err
	}
	return f.fakeFiles.ListFiles(srv, dir)
}

func (f *perServerFiles) FindByExtension(srv *domain.ServerConnection, root, ext string) ([]string, error) {
	if err := f.failing[srv.ID]; err != nil {
		return nil, err
	}
	return f.fakeFiles.FindByExtension(srv, root, ext)
}

func (f *perServerFiles) ReadLinesAfter(srv *domain.ServerConnection, p string, lastLine int64) ([]string, error) {
	if err := f.failing[srv.ID]; err != nil {
		return nil, err
	}
	return f.fakeFiles.ReadLinesAfter(srv, p, lastLine)
}

// One unreachable server must not keep the others from making progress in
// the same tick.
func TestTickIsolatesServerFailures(t *testing.T) {
	files := &perServerFiles{
		fakeFiles: newFakeFiles(),
		failing:   map[int64]error{1: errors.New("dial tcp: i/o timeout")},
	}
	cursors := newFakeCursors()
	players := newMemPlayers()
	agg := NewAggregator(players, zerolog.Nop())
	runner := NewRunner(files, cursors, &fakeRecords{}, agg, nil, zerolog.Nop())

	bad := domain.ServerConnection{ID: 1, TenantID: "t1", Host: "10.0.0.1", InstanceID: 1}
	good := domain.ServerConnection{ID: 2, TenantID: "t1", Host: "10.0.0.2", InstanceID: 2}
	files.lists[good.RootDir()+"/Logs"] = []string{"server.log"}
	files.contents[good.RootDir()+"/Logs/server.log"] = []string{
		"LogSFPS: [Login] Player Alice connected",
	}

	registry := &fakeRegistry{servers: []domain.ServerConnection{bad, good}}
	sched, err := NewScheduler(registry, runner, time.Minute, time.Minute, 4, zerolog.Nop())
	require.NoError(t, err)
	defer sched.Stop()

	sched.Tick(context.Background(), domain.StreamLog)

	_, failedSaved := cursors.cursors["1/log"]
	assert.False(t, failedSaved, "failed server's cursor must not move")
	assert.Equal(t, int64(0), cursors.cursors["2/log"].LastLine)
	assert.Equal(t, "server.log", cursors.cursors["2/log"].LastFile)
}

func TestTickRegistryFailureIsQuiet(t *testing.T) {
	runner := NewRunner(newFakeFiles(), newFakeCursors(), &fakeRecords{}, NewAggregator(newMemPlayers(), zerolog.Nop()), nil, zerolog.Nop())
	registry := &fakeRegistry{err: errors.New("database is locked")}
	sched, err := NewScheduler(registry, runner, time.Minute, time.Minute, 4, zerolog.Nop())
	require.NoError(t, err)
	defer sched.Stop()

	// Must not panic or block.
	sched.Tick(context.Background(), domain.StreamLog)
}

func TestNewSchedulerDefaultsConcurrency(t *testing.T) {
	runner := NewRunner(newFakeFiles(), newFakeCursors(), &fakeRecords{}, NewAggregator(newMemPlayers(), zerolog.Nop()), nil, zerolog.Nop())
	sched, err := NewScheduler(&fakeRegistry{}, runner, time.Minute, time.Minute, 0, zerolog.Nop())
	require.NoError(t, err)
	defer sched.Stop()

	assert.Equal(t, 4, sched.maxConcurrent)
}
