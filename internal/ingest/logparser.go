package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// Regular expressions for the unstructured server log. One pattern per
// event kind, tried in priority order; first match wins.
var (
	logKillRegex    = regexp.MustCompile(`^LogSFPS: \[Kill\] (.+?) killed (.+?) with (.+?) from (\d+)m`)
	logDeathRegex   = regexp.MustCompile(`^LogSFPS: \[Death\] Player (.+?) died, cause: (.+)$`)
	logJoinRegex    = regexp.MustCompile(`^LogSFPS: \[Login\] Player (.+?) connected`)
	logLeaveRegex   = regexp.MustCompile(`^LogSFPS: \[Logout\] Player (.+?) disconnected`)
	logAirdropRegex = regexp.MustCompile(`^LogSFPS: \[Airdrop\] Status changed to (.+)$`)
	logMissionRegex = regexp.MustCompile(`^LogSFPS: \[Mission\] '(.+?)' status: (.+)$`)
)

// ParseLogLine maps one unstructured log line to at most one event. It is
// total: lines matching no pattern return nil, it never fails. Log lines
// carry no timestamp, so the caller supplies one.
func ParseLogLine(line string, now time.Time) *domain.ParsedEvent {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	ev := &domain.ParsedEvent{Timestamp: now, RawLine: line}

	if m := logKillRegex.FindStringSubmatch(line); m != nil {
		dist, _ := strconv.Atoi(m[4])
		ev.Kind = domain.EventKill
		ev.Kill = &domain.KillEvent{
			Killer:         m[1],
			Victim:         m[2],
			Weapon:         m[3],
			DistanceMeters: dist,
		}
		return ev
	}

	if m := logDeathRegex.FindStringSubmatch(line); m != nil {
		ev.Kind = domain.EventDeath
		ev.Death = &domain.DeathEvent{Player: m[1], Cause: m[2]}
		return ev
	}

	if m := logJoinRegex.FindStringSubmatch(line); m != nil {
		ev.Kind = domain.EventJoin
		ev.Join = &domain.JoinEvent{Player: m[1]}
		return ev
	}

	if m := logLeaveRegex.FindStringSubmatch(line); m != nil {
		ev.Kind = domain.EventLeave
		ev.Leave = &domain.LeaveEvent{Player: m[1]}
		return ev
	}

	if m := logAirdropRegex.FindStringSubmatch(line); m != nil {
		ev.Kind = domain.EventWorldStatus
		ev.World = &domain.WorldStatusEvent{Kind: domain.WorldAirdrop, Status: m[1]}
		return ev
	}

	if m := logMissionRegex.FindStringSubmatch(line); m != nil {
		ev.Kind = domain.EventWorldStatus
		ev.World = &domain.WorldStatusEvent{Kind: domain.WorldMission, Name: m[1], Status: m[2]}
		return ev
	}

	return nil
}
