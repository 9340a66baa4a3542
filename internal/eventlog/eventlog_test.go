package eventlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmcquay/echo-engine/internal/logging"
	"github.com/dmmcquay/echo-engine/internal/metrics"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestEntryString(t *testing.T) {
	entry := Entry{
		Time:      time.Date(2024, 3, 5, 9, 7, 2, 500, time.Local),
		Stream:    StreamStdin,
		Direction: DirectionReceived,
		Message:   "fen rnbqkbnr/8 time 1000",
	}

	assert.Equal(t, "[Tue Mar  5 09:07:02 2024] [stdin] [received] fen rnbqkbnr/8 time 1000", entry.String())
}

func TestFileLogAppendsFormattedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine_log.txt")
	log := NewFileLog(path, 0, nil, nil)
	log.now = fixedClock(time.Date(2025, 11, 20, 18, 30, 45, 0, time.Local))

	log.Log("Engine started", StreamSystem, DirectionInternal)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[Thu Nov 20 18:30:45 2025] [system] [internal] Engine started\n", string(data))
}

func TestFileLogCreatesFileOnFirstWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine_log.txt")
	log := NewFileLog(path, 0, nil, nil)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should not exist before the first entry")

	log.Log("a1a1", StreamStdout, DirectionSent)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm()&0o600)
}

func TestFileLogNeverTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine_log.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	first := NewFileLog(path, 0, nil, nil)
	first.Log("one", StreamSystem, DirectionInternal)

	// A second, independent logger on the same path appends after the first.
	second := NewFileLog(path, 0, nil, nil)
	second.Log("two", StreamSystem, DirectionInternal)
	first.Log("three", StreamSystem, DirectionInternal)

	lines := readLines(t, path)
	require.Len(t, lines, 4)
	assert.Equal(t, "previous run", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "] one"))
	assert.True(t, strings.HasSuffix(lines[2], "] two"))
	assert.True(t, strings.HasSuffix(lines[3], "] three"))
}

func TestFileLogDoesNotHoldFileOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine_log.txt")
	log := NewFileLog(path, 0, nil, nil)

	log.Log("before", StreamSystem, DirectionInternal)

	// Replacing the file between entries must be visible to the next entry.
	require.NoError(t, os.Rename(path, filepath.Join(dir, "rotated.txt")))
	log.Log("after", StreamSystem, DirectionInternal)

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], "] after"))
}

func TestFileLogSwallowsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, "", "warn")
	collector := metrics.NewPrometheusCollector(nil)

	// A directory cannot be opened for writing.
	path := t.TempDir()
	log := NewFileLog(path, 0, logger, collector)

	assert.NotPanics(t, func() {
		log.Log("lost", StreamStdin, DirectionReceived)
		log.Log("lost again", StreamStdout, DirectionSent)
	})

	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.EventLogFailures)
	assert.Equal(t, int64(0), snap.EventLogEntries)
	assert.Contains(t, buf.String(), "Dropped event log entry")
	assert.Contains(t, buf.String(), "stage=open")
}

func TestFileLogCountsEntries(t *testing.T) {
	collector := metrics.NewPrometheusCollector(nil)
	log := NewFileLog(filepath.Join(t.TempDir(), "engine_log.txt"), 0, nil, collector)

	log.Log("x", StreamStdin, DirectionReceived)
	log.Log("y", StreamStdout, DirectionSent)

	assert.Equal(t, int64(2), collector.Snapshot().EventLogEntries)
	assert.Equal(t, int64(0), collector.Snapshot().EventLogFailures)
}

func TestParseEntry(t *testing.T) {
	ts := time.Date(2025, 1, 9, 7, 8, 9, 0, time.Local)

	tests := []struct {
		name  string
		entry Entry
	}{
		{"plain", Entry{Time: ts, Stream: StreamStdin, Direction: DirectionReceived, Message: "e2e4"}},
		{"empty message", Entry{Time: ts, Stream: StreamStdin, Direction: DirectionReceived, Message: ""}},
		{"brackets in message", Entry{Time: ts, Stream: StreamStderr, Direction: DirectionSent, Message: "[x] ] [y]"}},
		{"custom tags", Entry{Time: ts, Stream: "net", Direction: "queued", Message: "hello world"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseEntry(tt.entry.String() + "\n")
			require.NoError(t, err)
			assert.True(t, tt.entry.Time.Equal(parsed.Time), "time %v != %v", tt.entry.Time, parsed.Time)
			assert.Equal(t, tt.entry.Stream, parsed.Stream)
			assert.Equal(t, tt.entry.Direction, parsed.Direction)
			assert.Equal(t, tt.entry.Message, parsed.Message)
		})
	}
}

func TestParseEntryTrimmedEmptyMessage(t *testing.T) {
	parsed, err := ParseEntry("[Thu Jan  9 07:08:09 2025] [stdin] [received]")
	require.NoError(t, err)
	assert.Equal(t, StreamStdin, parsed.Stream)
	assert.Equal(t, DirectionReceived, parsed.Direction)
	assert.Equal(t, "", parsed.Message)
}

func TestParseEntryMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"no brackets here",
		"[Thu Jan  9 07:08:09 2025] [stdin]",
		"[yesterday] [stdin] [received] x",
	} {
		_, err := ParseEntry(line)
		assert.Error(t, err, "line %q", line)
	}
}
