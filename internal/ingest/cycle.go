package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// ErrCycleInFlight is returned when a cycle for the same (server, stream)
// is still running. The caller should simply try again next tick.
var ErrCycleInFlight = errors.New("ingestion cycle already in flight")

// Remote layout constants. The log directory sits under the server's
// derived root; kill feed exports can be nested arbitrarily deep.
const (
	logSubDir   = "Logs"
	logFileExt  = ".log"
	feedFileExt = ".csv"
)

// FileStore is the remote file access a cycle needs, satisfied by
// transport.Client.
type FileStore interface {
	ListFiles(srv *domain.ServerConnection, dir string) ([]string, error)
	FindByExtension(srv *domain.ServerConnection, root, ext string) ([]string, error)
	ReadLinesAfter(srv *domain.ServerConnection, p string, lastLine int64) ([]string, error)
}

// CursorStore persists stream cursors between cycles.
type CursorStore interface {
	LoadCursor(ctx context.Context, serverID int64, stream domain.Stream) (domain.StreamCursor, error)
	SaveCursor(ctx context.Context, cur domain.StreamCursor) error
}

// KillRecordStore appends accepted kill facts.
type KillRecordStore interface {
	InsertKillRecord(ctx context.Context, rec *domain.KillRecord) error
}

// Sink receives human-visible events. Publish is fire-and-forget; sink
// failures never block cursor persistence.
type Sink interface {
	Publish(ctx context.Context, srv *domain.ServerConnection, ev *domain.ParsedEvent)
}

// Runner executes ingestion cycles. One Runner serves all servers; a
// per-(server, stream) try-lock keeps cycles for the same pair from
// overlapping while letting different pairs run concurrently.
type Runner struct {
	files   FileStore
	cursors CursorStore
	records KillRecordStore
	agg     *Aggregator
	sink    Sink
	log     zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	inFlight map[flightKey]struct{}
}

type flightKey struct {
	serverID int64
	stream   domain.Stream
}

// NewRunner wires an ingestion cycle runner.
func NewRunner(files FileStore, cursors CursorStore, records KillRecordStore, agg *Aggregator, sink Sink, log zerolog.Logger) *Runner {
	return &Runner{
		files:    files,
		cursors:  cursors,
		records:  records,
		agg:      agg,
		sink:     sink,
		log:      log,
		now:      time.Now,
		inFlight: make(map[flightKey]struct{}),
	}
}

// RunCycle performs one resumable ingestion pass for a server and stream
// and returns the number of events processed.
//
// A transport or store failure aborts the pass with the cursor untouched,
// so the next tick retries the same lines. All parsed events are applied
// before the cursor is persisted in one step; a crash in between causes
// re-delivery of the batch (at-least-once, never silent loss).
func (r *Runner) RunCycle(ctx context.Context, srv *domain.ServerConnection, stream domain.Stream) (int, error) {
	key := flightKey{serverID: srv.ID, stream: stream}
	if !r.tryAcquire(key) {
		return 0, ErrCycleInFlight
	}
	defer r.release(key)

	log := r.log.With().
		Int64("server", srv.ID).
		Str("stream", string(stream)).
		Str("tenant", srv.TenantID).
		Logger()

	cur, err := r.cursors.LoadCursor(ctx, srv.ID, stream)
	if err != nil {
		return 0, fmt.Errorf("loading cursor: %w", err)
	}

	candidates, err := r.listCandidates(srv, stream)
	if err != nil {
		return 0, fmt.Errorf("listing files: %w", err)
	}

	target, offset := ResolveNextRead(candidates, cur)
	if target == "" {
		log.Debug().Msg("no files to ingest")
		return 0, nil
	}

	lines, err := r.files.ReadLinesAfter(srv, r.remotePath(srv, stream, target), offset)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", target, err)
	}
	if len(lines) == 0 && target == cur.LastFile {
		return 0, nil
	}

	processed, skipped := 0, 0
	for _, line := range lines {
		ev := r.parse(stream, line)
		if ev == nil {
			if strings.TrimSpace(line) != "" {
				skipped++
			}
			continue
		}
		if err := r.apply(ctx, srv, ev); err != nil {
			return processed, err
		}
		processed++
	}

	cur.LastFile = target
	cur.LastLine = offset + int64(len(lines))
	cur.LastTouched = r.now().UTC()
	if err := r.cursors.SaveCursor(ctx, cur); err != nil {
		return processed, fmt.Errorf("saving cursor: %w", err)
	}

	log.Info().
		Str("file", target).
		Int64("line", cur.LastLine).
		Int("events", processed).
		Int("skipped", skipped).
		Msg("cycle complete")
	return processed, nil
}

func (r *Runner) listCandidates(srv *domain.ServerConnection, stream domain.Stream) ([]string, error) {
	switch stream {
	case domain.StreamKillFeed:
		return r.files.FindByExtension(srv, srv.RootDir(), feedFileExt)
	default:
		names, err := r.files.ListFiles(srv, path.Join(srv.RootDir(), logSubDir))
		if err != nil {
			return nil, err
		}
		var logs []string
		for _, n := range names {
			if strings.EqualFold(path.Ext(n), logFileExt) {
				logs = append(logs, n)
			}
		}
		return logs, nil
	}
}

func (r *Runner) remotePath(srv *domain.ServerConnection, stream domain.Stream, name string) string {
	if stream == domain.StreamKillFeed {
		return path.Join(srv.RootDir(), name)
	}
	return path.Join(srv.RootDir(), logSubDir, name)
}

func (r *Runner) parse(stream domain.Stream, line string) *domain.ParsedEvent {
	if stream == domain.StreamKillFeed {
		return ParseKillRow(line)
	}
	return ParseLogLine(line, r.now().UTC())
}

// apply fans one event out to its projections: the kill record log, the
// player aggregates, and the notification sink. Record and aggregate
// updates share the event's timestamp.
func (r *Runner) apply(ctx context.Context, srv *domain.ServerConnection, ev *domain.ParsedEvent) error {
	if ev.Kind == domain.EventKill {
		rec := &domain.KillRecord{
			ID:             uuid.NewString(),
			TenantID:       srv.TenantID,
			ServerID:       srv.ID,
			Killer:         ev.Kill.Killer,
			Victim:         ev.Kill.Victim,
			Weapon:         ev.Kill.Weapon,
			DistanceMeters: ev.Kill.DistanceMeters,
			Timestamp:      ev.Timestamp,
			RawLine:        ev.RawLine,
		}
		if err := r.records.InsertKillRecord(ctx, rec); err != nil {
			return fmt.Errorf("inserting kill record: %w", err)
		}
	}

	if err := r.agg.Apply(ctx, srv.TenantID, ev); err != nil {
		return fmt.Errorf("applying event: %w", err)
	}

	if r.sink != nil {
		r.sink.Publish(ctx, srv, ev)
	}
	return nil
}

func (r *Runner) tryAcquire(key flightKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[key]; busy {
		return false
	}
	r.inFlight[key] = struct{}{}
	return true
}

func (r *Runner) release(key flightKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, key)
}
