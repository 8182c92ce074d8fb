package ingest

import (
	"sort"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// ResolveNextRead decides which file the next cycle should read and from
// which line, given the current remote file listing and the saved cursor.
// Filenames are chronologically prefixed, so their sort order is their
// rotation order.
//
// Rules:
//   - never ingested: start at the newest file from the top
//   - last file rotated away: start at the newest file from the top
//   - last file superseded: move to the file immediately after it; one file
//     per cycle, never a backlog replay
//   - last file still newest: continue where we left off
//
// An empty candidate list returns ("", NoLine); there is nothing to read.
func ResolveNextRead(candidates []string, cur domain.StreamCursor) (string, int64) {
	if len(candidates) == 0 {
		return "", domain.NoLine
	}

	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)
	newest := sorted[len(sorted)-1]

	if cur.LastFile == "" {
		return newest, domain.NoLine
	}

	idx := sort.SearchStrings(sorted, cur.LastFile)
	if idx >= len(sorted) || sorted[idx] != cur.LastFile {
		// Rotated out from under us.
		return newest, domain.NoLine
	}

	if sorted[idx] != newest {
		return sorted[idx+1], domain.NoLine
	}

	return cur.LastFile, cur.LastLine
}
