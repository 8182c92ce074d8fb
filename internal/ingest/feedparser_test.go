package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/zonewatch/internal/domain"
)

func TestParseKillRow(t *testing.T) {
	line := `"2025/04/10-00:00:00","Alice","killed","Bob","with","AK74","from","150m"`
	ev := ParseKillRow(line)
	require.NotNil(t, ev)

	assert.Equal(t, domain.EventKill, ev.Kind)
	assert.Equal(t, &domain.KillEvent{
		Killer:         "Alice",
		Victim:         "Bob",
		Weapon:         "AK74",
		DistanceMeters: 150,
	}, ev.Kill)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), ev.Timestamp)
	assert.Equal(t, line, ev.RawLine)
}

func TestParseKillRowRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not csv", "LogSFPS: [Kill] Alice killed Bob with AK74 from 150m"},
		{"too few fields", `"2025/04/10-00:00:00","Alice","killed","Bob"`},
		{"too many fields", `"a","b","c","d","e","f","g","h","i"`},
		{"wrong action", `"2025/04/10-00:00:00","Alice","revived","Bob","with","Medkit","from","1m"`},
		{"wrong with literal", `"2025/04/10-00:00:00","Alice","killed","Bob","using","AK74","from","150m"`},
		{"wrong from literal", `"2025/04/10-00:00:00","Alice","killed","Bob","with","AK74","at","150m"`},
		{"bad timestamp", `"yesterday","Alice","killed","Bob","with","AK74","from","150m"`},
		{"missing distance unit", `"2025/04/10-00:00:00","Alice","killed","Bob","with","AK74","from","150"`},
		{"non-numeric distance", `"2025/04/10-00:00:00","Alice","killed","Bob","with","AK74","from","farm"`},
		{"negative distance", `"2025/04/10-00:00:00","Alice","killed","Bob","with","AK74","from","-5m"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Nil(t, ParseKillRow(tt.line))
			})
		})
	}
}

func TestParseKillRowNamesWithCommas(t *testing.T) {
	ev := ParseKillRow(`"2025/04/10-08:30:00","Kowalski, Jan","killed","Bob","with","SVD","from","412m"`)
	require.NotNil(t, ev)
	assert.Equal(t, "Kowalski, Jan", ev.Kill.Killer)
	assert.Equal(t, 412, ev.Kill.DistanceMeters)
}
