package main

import (
	"context"
	"fmt"

	"github.com/at-ishikawa/vocabox/internal/bootstrap"
	"github.com/at-ishikawa/vocabox/internal/config"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// withDependencies runs fn with every component wired and releases them
// afterwards, also on interrupt.
func withDependencies(ctx context.Context, fn func(ctx context.Context, deps *bootstrap.Dependencies) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	app := bootstrap.New()
	return app.Run(ctx, func(ctx context.Context) error {
		deps, err := bootstrap.NewDependencies(ctx, app, cfg)
		if err != nil {
			return fmt.Errorf("bootstrap.NewDependencies() > %w", err)
		}
		return fn(ctx, deps)
	})
}
