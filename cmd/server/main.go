// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/versesync/internal/api/connect"
	"github.com/osa030/versesync/internal/api/rpc"
	"github.com/osa030/versesync/internal/app/index"
	"github.com/osa030/versesync/internal/app/session"
	"github.com/osa030/versesync/internal/infra/config"
	"github.com/osa030/versesync/internal/infra/logger"
	"github.com/osa030/versesync/internal/infra/stream"
	"github.com/osa030/versesync/internal/infra/tables"
)

var (
	app        = kingpin.New("versesync-server", "versesync recitation playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (overrides log.file)").String()

	// check-data command
	checkDataCmd = app.Command("check-data", "Load the data tables, print a summary and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Log to stdout until the config is read.
	if err := logger.Init(withFlags(logger.Config{Level: "info"})); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := logger.Init(withFlags(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})); err != nil {
		zlog.Fatal().Msgf("Failed to initialize logger: %v", err)
	}

	idx, err := loadIndex(cfg)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load data tables: %v", err)
	}

	if command == checkDataCmd.FullCommand() {
		printSummary(idx)
		return
	}

	if err := run(cfg, idx); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// withFlags applies the command-line logging flags, which win over the config file.
func withFlags(c logger.Config) logger.Config {
	if *verbose {
		c.Level = "debug"
	}
	if *logfile != "" {
		c.File = *logfile
	}
	return c
}

func loadIndex(cfg *config.Config) (*index.Index, error) {
	set, err := tables.LoadSet(tables.Paths{
		Segments: cfg.Data.Segments,
		Audio:    cfg.Data.Audio,
		Glyphs:   cfg.Data.Glyphs,
		Words:    cfg.Data.Words,
	})
	if err != nil {
		return nil, err
	}
	return index.New(set), nil
}

// printSummary prints the collections found in the data tables.
func printSummary(idx *index.Index) {
	fmt.Println("Collections:")
	for _, c := range idx.Collections() {
		col, _ := idx.Collection(c)
		timing := "untimed"
		if idx.HasTiming(c) {
			timing = "timed"
		}
		fmt.Printf("  %3d  units=%-4d %-8s duration=%-8s %s\n",
			c, len(col.Units), timing, formatDuration(col.DurationSec), col.AudioURL)
	}
}

func formatDuration(sec float64) string {
	if sec <= 0 {
		return "-"
	}
	return time.Duration(sec * float64(time.Second)).Round(time.Second).String()
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, idx *index.Index) error {
	clock := stream.NewClock(stream.Config{
		TickInterval:  cfg.Audio.TickInterval(),
		LocalRoot:     cfg.Audio.LocalRoot,
		RemoteTimeout: cfg.Audio.RemoteTimeout(),
	})

	sessionMgr, err := session.NewManager(cfg, idx, clock)
	if err != nil {
		clock.Close()
		return errors.Wrap(err, "failed to create session manager")
	}
	defer sessionMgr.Close()

	if cfg.Server.Token == "" {
		zlog.Warn().Msg("No control token configured, playback calls are not authenticated")
	}

	playbackService := apiconnect.NewPlaybackService(sessionMgr)

	mux := http.NewServeMux()
	path, handler := rpc.NewPlaybackServiceHandler(
		playbackService,
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg.Server.Token)),
	)
	mux.Handle(path, handler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(logger.Component("http"), "", 0),
	}

	serverErrCh := make(chan error, 1)

	sessionMgr.Start()

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the session first so open Watch streams return.
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}
