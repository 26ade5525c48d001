// Package main is the entry point for the Mos Mood server.
//
// MAIN PACKAGE IN GO:
// main stays minimal. It parses flags, reads configuration, builds the
// logger and hands everything to internal/server, where the real wiring
// lives.
//
// Usage:
//
//	server [--config .env] [--port 8080] [--db-path data/mood.db]
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/sakif/mos-mood/internal/config"
	"github.com/sakif/mos-mood/internal/server"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	configPath := flags.String("config", "", "dotenv file to read (default .env when present)")
	flags.Int("port", 8080, "HTTP listen port (overrides PORT)")
	flags.String("db-path", "data/mood.db", "SQLite database file when DATABASE_URL is unset (overrides DB_PATH)")
	_ = flags.Parse(os.Args[1:])

	// === 1. READ CONFIGURATION ===
	reader, err := config.NewReader(*configPath, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	settings, err := config.Load(reader)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_FORMAT=json for log collectors, the text handler otherwise.
	logger := newLogger(os.Stdout, settings.LogFormat, settings.LogLevel)
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(settings, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
