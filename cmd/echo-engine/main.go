package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmmcquay/echo-engine/internal/config"
	"github.com/dmmcquay/echo-engine/internal/engine"
	"github.com/dmmcquay/echo-engine/internal/eventlog"
	"github.com/dmmcquay/echo-engine/internal/logging"
	"github.com/dmmcquay/echo-engine/internal/metrics"
)

var (
	// Version information injected at build time.
	GitCommit string = "unknown"
	BuildTime string = "unknown"
)

func main() {
	os.Exit(run(os.Stdin, os.Stdout, os.Stderr, io.Discard))
}

// run wires the engine to the given streams and returns the exit status.
// diagOut receives the engine's own diagnostics; stdout and stderr are
// reserved for the host.
func run(stdin io.Reader, stdout, stderr, diagOut io.Writer) int {
	// A closed pipe must surface as a write error rather than kill the process
	// between a write and its event log entry.
	signal.Ignore(syscall.SIGPIPE)

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(diagOut, "Invalid configuration: %v\n", err)
		return 1
	}

	logger := logging.NewLogger(diagOut, cfg.Logging.Prefix, cfg.Logging.Level)
	logger.Info("Starting echo engine (commit: %s, built: %s)", GitCommit, BuildTime)

	collector := metrics.NewPrometheusCollector(nil)
	events := eventlog.NewFileLog(cfg.EventLog.Path, os.FileMode(cfg.EventLog.FileMode), logger, collector)

	// os.Stdout and os.Stderr are unbuffered *os.File values, so every reply
	// reaches the host as soon as it is written.
	eng := engine.NewEngine(cfg.Engine, stdin, stdout, stderr, events, logger, collector)
	if err := eng.Run(); err != nil {
		logger.Warn("Engine stopped early", "error", err)
	}

	snap := collector.Snapshot()
	logger.Info("Session totals",
		"received", snap.LinesReceived,
		"stdout", snap.StdoutSent,
		"stderr", snap.StderrSent,
		"output_failures", snap.OutputFailures,
		"log_entries", snap.EventLogEntries,
		"log_failures", snap.EventLogFailures,
	)
	return 0
}
