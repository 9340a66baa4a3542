// Package eventlog appends tagged, timestamped records of engine traffic to a
// plain text file.
package eventlog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmmcquay/echo-engine/internal/logging"
	"github.com/dmmcquay/echo-engine/internal/metrics"
)

// TimeLayout renders timestamps the way C's ctime does, without the newline.
const TimeLayout = time.ANSIC

// Stream identifies the channel a message is associated with.
type Stream string

const (
	StreamSystem Stream = "system"
	StreamStdin  Stream = "stdin"
	StreamStderr Stream = "stderr"
	StreamStdout Stream = "stdout"
)

// Direction marks whether a message was consumed or produced by the engine.
type Direction string

const (
	DirectionInternal Direction = "internal"
	DirectionReceived Direction = "received"
	DirectionSent     Direction = "sent"
)

// Entry is one event log record.
type Entry struct {
	Time      time.Time
	Stream    Stream
	Direction Direction
	Message   string
}

// String renders the entry without a line terminator.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] [%s] [%s] %s",
		e.Time.Format(TimeLayout), e.Stream, e.Direction, e.Message)
}

// ParseEntry parses a line produced by Entry.String. The timestamp is
// interpreted in the local zone.
func ParseEntry(line string) (Entry, error) {
	line = strings.TrimRight(line, "\r\n")

	fields := make([]string, 0, 3)
	rest := line
	for i := 0; i < 3; i++ {
		if !strings.HasPrefix(rest, "[") {
			return Entry{}, fmt.Errorf("malformed event log line %q: missing field %d", line, i+1)
		}
		end := strings.Index(rest, "] ")
		if end < 0 {
			if i == 2 && strings.HasSuffix(rest, "]") {
				// empty message with the trailing space stripped
				end = len(rest) - 1
			} else {
				return Entry{}, fmt.Errorf("malformed event log line %q: unterminated field %d", line, i+1)
			}
		}
		fields = append(fields, rest[1:end])
		if end+2 <= len(rest) {
			rest = rest[end+2:]
		} else {
			rest = ""
		}
	}

	ts, err := time.ParseInLocation(TimeLayout, fields[0], time.Local)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed event log timestamp %q: %w", fields[0], err)
	}

	return Entry{
		Time:      ts,
		Stream:    Stream(fields[1]),
		Direction: Direction(fields[2]),
		Message:   rest,
	}, nil
}

// EventLogger records engine events. Implementations never fail the caller.
type EventLogger interface {
	Log(message string, stream Stream, direction Direction)
}

var _ EventLogger = (*FileLog)(nil)

// FileLog appends entries to a file, opening and closing it for every entry
// so that concurrent writers interleave at whole-line granularity.
type FileLog struct {
	path    string
	mode    os.FileMode
	now     func() time.Time
	logger  logging.LoggerInterface
	metrics *metrics.PrometheusCollector
}

// NewFileLog creates an event log backed by path. The file is not touched
// until the first entry is logged.
func NewFileLog(path string, mode os.FileMode, logger logging.LoggerInterface, m *metrics.PrometheusCollector) *FileLog {
	if mode == 0 {
		mode = 0o644
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewPrometheusCollector(nil)
	}
	return &FileLog{
		path:    path,
		mode:    mode,
		now:     time.Now,
		logger:  logger,
		metrics: m,
	}
}

// Path returns the file the log appends to.
func (l *FileLog) Path() string {
	return l.path
}

// Log appends one entry. Failures are counted and reported on the diagnostic
// logger, never returned.
func (l *FileLog) Log(message string, stream Stream, direction Direction) {
	entry := Entry{
		Time:      l.now(),
		Stream:    stream,
		Direction: direction,
		Message:   message,
	}
	if stage, err := l.append(entry); err != nil {
		l.metrics.RecordEventLogFailure(stage)
		l.logger.Warn("Dropped event log entry", "path", l.path, "stage", stage, "error", err)
		return
	}
	l.metrics.RecordEventLogEntry(string(stream), string(direction))
}

// append performs one open, write, close cycle. The line is written with a
// single Write so O_APPEND keeps it contiguous.
func (l *FileLog) append(entry Entry) (string, error) {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, l.mode)
	if err != nil {
		return "open", fmt.Errorf("failed to open event log: %w", err)
	}

	if _, err := file.WriteString(entry.String() + "\n"); err != nil {
		_ = file.Close()
		return "write", fmt.Errorf("failed to write event log: %w", err)
	}

	if err := file.Close(); err != nil {
		return "close", fmt.Errorf("failed to close event log: %w", err)
	}
	return "", nil
}
