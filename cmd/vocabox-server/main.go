package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/vocabox/internal/bootstrap"
	"github.com/at-ishikawa/vocabox/internal/config"
	"github.com/at-ishikawa/vocabox/internal/server"
)

var configFile string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var debugMode bool
	rootCmd := &cobra.Command{
		Use:           "vocabox-server",
		Short:         "Dictionary HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			setupGinMode(debugMode)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
	return rootCmd
}

func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})),
	)
}

func setupGinMode(debugMode bool) {
	if debugMode {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	app := bootstrap.New()
	return app.Run(ctx, func(ctx context.Context) error {
		deps, err := bootstrap.NewDependencies(ctx, app, cfg)
		if err != nil {
			return fmt.Errorf("bootstrap.NewDependencies() > %w", err)
		}

		handler, err := server.New(server.Options{
			Config:            cfg.Server,
			Resolver:          deps.Resolver,
			Dictionary:        deps.Dictionary,
			RandomWords:       deps.RandomWords,
			Images:            deps.Images,
			ImagesDir:         deps.Files.ImagesDir(),
			PronunciationsDir: deps.Files.PronunciationsDir(),
			ReadyChecks:       deps.ReadyChecks(),
		})
		if err != nil {
			return fmt.Errorf("server.New() > %w", err)
		}

		srv := &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:     h2c.NewHandler(handler.Handler(), &http2.Server{}),
			ReadTimeout: cfg.Server.ReadTimeout,
		}
		app.AddShutdownHook("http server", srv.Shutdown)

		slog.Default().Info("starting server", "addr", srv.Addr, "database", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}
