package ingest

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// killFeedTimeLayout is the timestamp format of the structured kill feed,
// e.g. 2025/04/10-00:00:00.
const killFeedTimeLayout = "2006/01/02-15:04:05"

// killFeedFields is the fixed column count of a kill feed row:
// timestamp, killer, "killed", victim, "with", weapon, "from", "<int>m".
const killFeedFields = 8

// ParseKillRow maps one quoted comma-delimited kill feed row to a Kill
// event. Rows that do not match the grammar, or whose action field is not
// "killed", return nil. Like the log parser it is total.
func ParseKillRow(line string) *domain.ParsedEvent {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	r := csv.NewReader(strings.NewReader(line))
	fields, err := r.Read()
	if err != nil || len(fields) != killFeedFields {
		return nil
	}
	if fields[2] != "killed" || fields[4] != "with" || fields[6] != "from" {
		return nil
	}

	ts, err := time.Parse(killFeedTimeLayout, fields[0])
	if err != nil {
		return nil
	}

	distStr, ok := strings.CutSuffix(fields[7], "m")
	if !ok {
		return nil
	}
	dist, err := strconv.Atoi(distStr)
	if err != nil || dist < 0 {
		return nil
	}

	return &domain.ParsedEvent{
		Kind:      domain.EventKill,
		Timestamp: ts,
		RawLine:   line,
		Kill: &domain.KillEvent{
			Killer:         fields[1],
			Victim:         fields[3],
			Weapon:         fields[5],
			DistanceMeters: dist,
		},
	}
}
