package config

import (
	"fmt"
	"strings"
)

const (
	// DefaultEventLogPath is where the engine appends its event log, relative
	// to the working directory.
	DefaultEventLogPath = "engine_log.txt"
	// DefaultReply is the move sent back for every request line.
	DefaultReply = "a1a1"
	// DefaultDiagnostic is the line mirrored to stderr for every request line.
	DefaultDiagnostic = "!Debug info: Processing move request"
)

type Config struct {
	// Event log configuration
	EventLog EventLogConfig `json:"eventLog"`

	// Engine reply configuration
	Engine EngineConfig `json:"engine"`

	// Diagnostic logging configuration
	Logging LoggingConfig `json:"logging"`
}

type EventLogConfig struct {
	Path     string `json:"path"`
	FileMode uint32 `json:"fileMode"`
}

type EngineConfig struct {
	Reply      string `json:"reply"`
	Diagnostic string `json:"diagnostic"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Prefix string `json:"prefix"`
}

// Default returns the compiled-in configuration. The engine takes no flags,
// files or environment variables, so this is the only source.
func Default() *Config {
	return &Config{
		EventLog: EventLogConfig{
			Path:     DefaultEventLogPath,
			FileMode: 0o644,
		},
		Engine: EngineConfig{
			Reply:      DefaultReply,
			Diagnostic: DefaultDiagnostic,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Prefix: "[echo-engine] ",
		},
	}
}

// Validate fills in missing values and rejects ones that would break the
// one-line-per-request contract.
func (c *Config) Validate() error {
	if c.EventLog.Path == "" {
		c.EventLog.Path = DefaultEventLogPath
	}
	if c.EventLog.FileMode == 0 {
		c.EventLog.FileMode = 0o644
	}

	if c.Engine.Reply == "" {
		c.Engine.Reply = DefaultReply
	}
	if c.Engine.Diagnostic == "" {
		c.Engine.Diagnostic = DefaultDiagnostic
	}
	if strings.ContainsAny(c.Engine.Reply, "\r\n") {
		return fmt.Errorf("reply must be a single line: %q", c.Engine.Reply)
	}
	if strings.ContainsAny(c.Engine.Diagnostic, "\r\n") {
		return fmt.Errorf("diagnostic must be a single line: %q", c.Engine.Diagnostic)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
