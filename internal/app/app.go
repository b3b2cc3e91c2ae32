// Package app wires configuration, the store, the journal and the UI into
// the mongoprov commands.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mongoprov/internal/config"
	"mongoprov/internal/data/journal"
	"mongoprov/internal/data/store"
	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/logger"
	"mongoprov/internal/metrics"
	"mongoprov/internal/schema"
	"mongoprov/internal/ui"
)

const module = "app"

// StoreFactory opens a store for the configured database.
type StoreFactory func(ctx context.Context, cfg config.MongoConfig) (store.Store, error)

// JournalOpener opens the run journal at path.
type JournalOpener func(ctx context.Context, path string) (journal.Repository, error)

// Command selects what Run executes.
type Command struct {
	Name   string
	DryRun bool
	Limit  int
}

// App holds the dependencies shared by all commands.
type App struct {
	config      *config.Config
	logger      logger.Logger
	console     *ui.Console
	printer     *ui.Printer
	metrics     *metrics.Recorder
	plan        *schema.Plan
	connect     StoreFactory
	openJournal JournalOpener
	newRunID    func() string
	now         func() time.Time
}

// Option customises an App.
type Option func(*App)

// WithStoreFactory replaces the MongoDB connection.
func WithStoreFactory(f StoreFactory) Option {
	return func(a *App) { a.connect = f }
}

// WithJournalOpener replaces the SQLite journal.
func WithJournalOpener(f JournalOpener) Option {
	return func(a *App) { a.openJournal = f }
}

// WithConsole sets the console and printer used for output.
func WithConsole(console *ui.Console, printer *ui.Printer) Option {
	return func(a *App) {
		a.console = console
		a.printer = printer
	}
}

// New builds the application and loads the plan named by cfg, or the
// embedded default plan.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	a := &App{
		config:      cfg,
		logger:      log,
		metrics:     metrics.NewRecorder(),
		connect:     connectMongo,
		openJournal: openSQLiteJournal,
		newRunID:    uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.console == nil {
		a.console = ui.NewConsole(log, nil)
	}
	if a.printer == nil {
		a.printer = ui.NewPrinter()
	}

	plan, err := loadPlan(cfg.PlanPath)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	a.plan = plan
	return a, nil
}

// Run executes one command.
func (a *App) Run(ctx context.Context, cmd Command) error {
	switch cmd.Name {
	case "apply":
		return a.Apply(ctx, cmd.DryRun)
	case "verify":
		return a.Verify(ctx)
	case "plan":
		return a.ShowPlan(ctx)
	case "history":
		return a.History(ctx, cmd.Limit)
	case "menu":
		return a.Menu(ctx)
	default:
		return apperrors.ConfigError(apperrors.CodeUsage, "unknown command "+cmd.Name, nil).
			WithModule(module).
			WithOperation("app.Run")
	}
}

// Plan returns the loaded plan.
func (a *App) Plan() *schema.Plan {
	return a.plan
}

func (a *App) target() string {
	return config.RedactURI(a.config.Mongo.URI) + " / " + a.config.Mongo.Database
}

func (a *App) startRun(ctx context.Context, command string) context.Context {
	return logger.ContextWithRun(ctx, logger.RunContext{RunID: a.newRunID(), Command: command})
}

func loadPlan(path string) (*schema.Plan, error) {
	if path == "" {
		return schema.DefaultPlan()
	}
	plan, err := schema.LoadPlan(path)
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeInvalidConfig, "failed to load plan", err).
			WithModule(module).
			WithOperation("app.loadPlan").
			WithField("path", path)
	}
	return plan, nil
}

func connectMongo(ctx context.Context, cfg config.MongoConfig) (store.Store, error) {
	s, err := store.Connect(ctx, store.Options{
		URI:              cfg.URI,
		Database:         cfg.Database,
		AppName:          cfg.AppName,
		ConnectTimeout:   cfg.ConnectTimeout,
		OperationTimeout: cfg.OperationTimeout,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openSQLiteJournal(ctx context.Context, path string) (journal.Repository, error) {
	repo, err := journal.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
