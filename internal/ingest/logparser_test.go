package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/zonewatch/internal/domain"
)

var parseTime = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

func TestParseLogLineJoin(t *testing.T) {
	ev := ParseLogLine("LogSFPS: [Login] Player Alice connected", parseTime)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventJoin, ev.Kind)
	assert.Equal(t, "Alice", ev.Join.Player)
	assert.Equal(t, parseTime, ev.Timestamp)
}

func TestParseLogLineLeave(t *testing.T) {
	ev := ParseLogLine("LogSFPS: [Logout] Player Old Boar disconnected", parseTime)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventLeave, ev.Kind)
	assert.Equal(t, "Old Boar", ev.Leave.Player)
}

func TestParseLogLineKill(t *testing.T) {
	line := "LogSFPS: [Kill] Alice killed Bob with AK74 from 150m"
	ev := ParseLogLine(line, parseTime)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventKill, ev.Kind)
	assert.Equal(t, &domain.KillEvent{
		Killer:         "Alice",
		Victim:         "Bob",
		Weapon:         "AK74",
		DistanceMeters: 150,
	}, ev.Kill)
	assert.Equal(t, line, ev.RawLine)
}

func TestParseLogLineDeath(t *testing.T) {
	ev := ParseLogLine("LogSFPS: [Death] Player Bob died, cause: radiation", parseTime)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventDeath, ev.Kind)
	assert.Equal(t, "Bob", ev.Death.Player)
	assert.Equal(t, "radiation", ev.Death.Cause)
}

func TestParseLogLineWorldStatus(t *testing.T) {
	ev := ParseLogLine("LogSFPS: [Airdrop] Status changed to Dropped", parseTime)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventWorldStatus, ev.Kind)
	assert.Equal(t, &domain.WorldStatusEvent{Kind: domain.WorldAirdrop, Status: "Dropped"}, ev.World)

	ev = ParseLogLine("LogSFPS: [Mission] 'Convoy' status: Started", parseTime)
	require.NotNil(t, ev)
	assert.Equal(t, &domain.WorldStatusEvent{Kind: domain.WorldMission, Name: "Convoy", Status: "Started"}, ev.World)
}

// The parser must be total: any input yields zero or one event, never a
// panic or error.
func TestParseLogLineTotality(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"garbage",
		"LogSFPS:",
		"LogSFPS: [Login]",
		"LogSFPS: [Kill] Alice killed Bob with AK74 from NaNm",
		"LogOther: [Login] Player Alice connected",
		"\x00\xff\xfe",
		"LogSFPS: [Kill] ",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			assert.Nil(t, ParseLogLine(in, parseTime), "input %q should not parse", in)
		})
	}
}

func TestParseLogLineFirstMatchWins(t *testing.T) {
	// A kill line mentioning "connected" as a player name must still parse
	// as a kill: kill has priority.
	ev := ParseLogLine("LogSFPS: [Kill] Alice killed Player connected with AK74 from 10m", parseTime)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventKill, ev.Kind)
}
