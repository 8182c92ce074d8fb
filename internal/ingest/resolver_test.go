package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zonewatch/zonewatch/internal/domain"
)

func cursorAt(file string, line int64) domain.StreamCursor {
	return domain.StreamCursor{ServerID: 1, Stream: domain.StreamLog, LastFile: file, LastLine: line}
}

func TestResolveNextRead(t *testing.T) {
	candidates := []string{"A", "B", "C"}

	tests := []struct {
		name       string
		candidates []string
		cursor     domain.StreamCursor
		wantFile   string
		wantLine   int64
	}{
		{
			name:       "never ingested starts at newest",
			candidates: candidates,
			cursor:     cursorAt("", domain.NoLine),
			wantFile:   "C",
			wantLine:   domain.NoLine,
		},
		{
			name:       "rotated-out file restarts at newest",
			candidates: candidates,
			cursor:     cursorAt("Z", 5),
			wantFile:   "C",
			wantLine:   domain.NoLine,
		},
		{
			name:       "superseded file moves to the next one",
			candidates: candidates,
			cursor:     cursorAt("A", 5),
			wantFile:   "B",
			wantLine:   domain.NoLine,
		},
		{
			name:       "current newest continues in place",
			candidates: candidates,
			cursor:     cursorAt("C", 41),
			wantFile:   "C",
			wantLine:   41,
		},
		{
			name:       "unsorted input is handled",
			candidates: []string{"C", "A", "B"},
			cursor:     cursorAt("A", 5),
			wantFile:   "B",
			wantLine:   domain.NoLine,
		},
		{
			name:       "single file still current",
			candidates: []string{"A"},
			cursor:     cursorAt("A", 12),
			wantFile:   "A",
			wantLine:   12,
		},
		{
			name:       "no candidates",
			candidates: nil,
			cursor:     cursorAt("A", 12),
			wantFile:   "",
			wantLine:   domain.NoLine,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, line := ResolveNextRead(tt.candidates, tt.cursor)
			assert.Equal(t, tt.wantFile, file)
			assert.Equal(t, tt.wantLine, line)
		})
	}
}

func TestResolveNextReadDoesNotMutateInput(t *testing.T) {
	candidates := []string{"C", "A", "B"}
	ResolveNextRead(candidates, cursorAt("", domain.NoLine))
	assert.Equal(t, []string{"C", "A", "B"}, candidates)
}

// Skipping intermediate files on rotation is deliberate: from (A, n) with
// candidates A..D the resolver steps to B, never jumps to D, and never
// rewinds within a file.
func TestResolveNextReadStepsOneFileAtATime(t *testing.T) {
	candidates := []string{"A", "B", "C", "D"}

	file, line := ResolveNextRead(candidates, cursorAt("A", 100))
	assert.Equal(t, "B", file)
	assert.Equal(t, domain.NoLine, line)

	file, line = ResolveNextRead(candidates, cursorAt(file, 3))
	assert.Equal(t, "C", file)
	assert.Equal(t, domain.NoLine, line)
}
