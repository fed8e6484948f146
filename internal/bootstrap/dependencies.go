package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/vocabox/internal/browser"
	"github.com/at-ishikawa/vocabox/internal/config"
	"github.com/at-ishikawa/vocabox/internal/database"
	"github.com/at-ishikawa/vocabox/internal/dictionary"
	"github.com/at-ishikawa/vocabox/internal/imagesearch"
	"github.com/at-ishikawa/vocabox/internal/randomword"
	"github.com/at-ishikawa/vocabox/internal/translate"
)

// Dependencies are the long-lived components shared by the binaries.
type Dependencies struct {
	DB          *sqlx.DB
	Browser     *browser.Manager
	Translator  *translate.Translator
	Audio       *dictionary.AudioFetcher
	Files       *dictionary.FileStore
	RandomWords *randomword.Pool
	Resolver    *dictionary.Resolver
	Dictionary  *dictionary.Service
	Images      *imagesearch.Searcher
}

// NewDependencies opens the database, migrates it and wires every
// component. Each resource that must be released registers a shutdown hook
// on app. The browser is only launched by the first page that needs it.
func NewDependencies(ctx context.Context, app *App, cfg *config.Config) (*Dependencies, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}
	app.AddShutdownHook("database", func(context.Context) error {
		return db.Close()
	})
	if err := database.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("database.Migrate() > %w", err)
	}

	pool, err := randomword.Load(cfg.RandomWords.File)
	if err != nil {
		return nil, fmt.Errorf("randomword.Load() > %w", err)
	}

	manager := browser.NewManager(cfg.Browser)
	app.AddShutdownHook("browser", func(context.Context) error {
		return manager.Close()
	})
	audio := dictionary.NewAudioFetcher(cfg.Audio)
	app.AddShutdownHook("audio", func(context.Context) error {
		return audio.Close()
	})

	translator := translate.NewTranslator(cfg.Translate, translate.BrowserPages(manager))
	repo := dictionary.NewDBRepository(db)
	files := dictionary.NewFileStore(cfg.Storage)

	return &Dependencies{
		DB:          db,
		Browser:     manager,
		Translator:  translator,
		Audio:       audio,
		Files:       files,
		RandomWords: pool,
		Resolver:    dictionary.NewResolver(repo, translator, audio),
		Dictionary:  dictionary.NewService(db, repo, files, pool),
		Images:      imagesearch.NewSearcher(cfg.ImageSearch, imagesearch.BrowserPages(manager)),
	}, nil
}

// ErrTranslatorUnavailable is reported by the readiness check while the
// circuit breaker is open.
var ErrTranslatorUnavailable = errors.New("translator circuit is open")

// ReadyChecks returns the checks behind the readiness endpoint.
func (d *Dependencies) ReadyChecks() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"database": d.DB.PingContext,
		"browser":  d.Browser.Ready,
		"translator": func(context.Context) error {
			if !d.Translator.Available() {
				return ErrTranslatorUnavailable
			}
			return nil
		},
	}
}
