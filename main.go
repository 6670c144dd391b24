package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"musicbox/api"
	"musicbox/config"
	"musicbox/db"
	"musicbox/session"
	"musicbox/utils"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
)

// @title           Music Player API
// @version         1.0

// @description     ## Music Player API
// @description
// @description     Backend for a small music player. It lets users:
// @description     *   Sign up and log in. Login returns an opaque session token.
// @description     *   Browse the song catalog.
// @description     *   Create, list and delete playlists, and add or remove songs.
// @description
// @description     Songs found in an external catalog can be added to a playlist directly with a `song_object`; they are copied into the local catalog first.
// @description
// @description     All data is kept in three JSON documents (`users.json`, `songs.json`, `playlists.json`) on disk or in an S3-compatible bucket.

// @host      localhost:6543
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

const version = "1.0.0"

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal("musicbox failed", "error", err)
	}
}

// newApp builds the command tree. Running without a subcommand starts the server.
func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "musicbox",
		Usage:   "Music player API server",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (default: ./" + config.DefaultConfigFile + " if present)",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "Address to listen on",
			},
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory holding the JSON documents (file storage)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Configuration helpers",
				Commands: []*cli.Command{
					{
						Name:  "init",
						Usage: "Write the default configuration file",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "output",
								Aliases: []string{"o"},
								Usage:   "Where to write the file",
								Value:   config.DefaultConfigFile,
							},
							&cli.BoolFlag{
								Name:  "force",
								Usage: "Overwrite an existing file",
							},
						},
						Action: configInit,
					},
				},
			},
		},
	}
}

// loadSettings layers command-line flags over the file and environment configuration.
func loadSettings(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("address") {
		cfg.Server.Address = cmd.String("address")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.String("port")
	}
	if cmd.IsSet("data-dir") {
		cfg.Storage.DataDir = cmd.String("data-dir")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	level, _ := log.ParseLevel(cfg.Log.Level) // checked by Validate
	log.SetDefault(utils.NewLogger(os.Stderr, level, cfg.Log.Format))
	if level > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	config.LogSummary(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := session.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			log.Warn("failed to close session registry", "error", err)
		}
	}()

	backend, err := db.NewBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	database, err := db.NewDatabase(ctx, cfg, backend)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           api.NewHandler(database, sessions, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func configInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, config.ExampleConfig(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.Root().Writer, "wrote %s\n", path)
	return nil
}
