package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmmcquay/echo-engine/internal/config"
	"github.com/dmmcquay/echo-engine/internal/eventlog"
	"github.com/dmmcquay/echo-engine/internal/logging"
	"github.com/dmmcquay/echo-engine/internal/metrics"
)

const (
	startedMessage  = "Engine started"
	shutdownMessage = "Engine shutting down"
)

// Engine answers every request line on its input with a fixed move.
type Engine struct {
	config  config.EngineConfig
	logger  logging.LoggerInterface
	events  eventlog.EventLogger
	metrics *metrics.PrometheusCollector

	in   *bufio.Reader
	out  io.Writer
	diag io.Writer
}

// flusher is implemented by buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

// OutputError reports a failed write to one of the engine's output streams.
type OutputError struct {
	Stream eventlog.Stream
	Err    error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("failed to write to %s: %v", e.Stream, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// NewEngine creates an engine reading requests from in, replying on out and
// mirroring diagnostics to diag.
func NewEngine(cfg config.EngineConfig, in io.Reader, out, diag io.Writer, events eventlog.EventLogger, logger logging.LoggerInterface, m *metrics.PrometheusCollector) *Engine {
	if cfg.Reply == "" {
		cfg.Reply = config.DefaultReply
	}
	if cfg.Diagnostic == "" {
		cfg.Diagnostic = config.DefaultDiagnostic
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewPrometheusCollector(nil)
	}
	return &Engine{
		config:  cfg,
		logger:  logger,
		events:  events,
		metrics: m,
		in:      bufio.NewReader(in),
		out:     out,
		diag:    diag,
	}
}

// Run serves request lines until the input ends. A read error is treated as
// the end of input. A failed write stops the loop and is returned after the
// shutdown entry has been logged.
func (e *Engine) Run() error {
	e.events.Log(startedMessage, eventlog.StreamSystem, eventlog.DirectionInternal)
	e.logger.Info("Engine started", "reply", e.config.Reply)

	var (
		served int
		runErr error
	)
	for {
		line, ok := e.readLine()
		if !ok {
			break
		}
		if err := e.handle(line); err != nil {
			runErr = err
			break
		}
		served++
	}

	e.events.Log(shutdownMessage, eventlog.StreamSystem, eventlog.DirectionInternal)
	e.logger.Info("Engine shutting down", "served", served)
	return runErr
}

// readLine returns the next line without its terminator. A trailing partial
// line is still returned; an empty remainder at end of input is not a line.
func (e *Engine) readLine() (string, bool) {
	line, err := e.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			e.logger.Warn("Input read failed, treating as end of input", "error", err)
		}
		if line == "" {
			return "", false
		}
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

// handle answers a single request line. The content is only logged.
func (e *Engine) handle(line string) error {
	e.metrics.RecordLineReceived()
	e.events.Log(line, eventlog.StreamStdin, eventlog.DirectionReceived)
	e.logger.Debug("Received request", "bytes", len(line))

	if err := e.send(e.diag, eventlog.StreamStderr, e.config.Diagnostic); err != nil {
		return err
	}
	return e.send(e.out, eventlog.StreamStdout, e.config.Reply)
}

// send writes msg and a newline to w, flushes it, and logs it as sent.
func (e *Engine) send(w io.Writer, stream eventlog.Stream, msg string) error {
	_, err := io.WriteString(w, msg+"\n")
	if err == nil {
		if f, ok := w.(flusher); ok {
			err = f.Flush()
		}
	}
	if err != nil {
		e.metrics.RecordOutputFailure(string(stream))
		e.logger.Error("Output write failed", "stream", stream, "error", err)
		return &OutputError{Stream: stream, Err: err}
	}

	e.metrics.RecordLineSent(string(stream))
	e.events.Log(msg, stream, eventlog.DirectionSent)
	return nil
}
