package app

import (
	"context"
	"fmt"

	"mongoprov/internal/config"
	"mongoprov/internal/data/store"
	apperrors "mongoprov/internal/errors"
	errlogging "mongoprov/internal/errors/logging"
	"mongoprov/internal/logger"
	"mongoprov/internal/menu"
	"mongoprov/internal/provision"
	"mongoprov/internal/verify"
)

// Apply provisions the plan. With dryRun set the store is only inspected.
func (a *App) Apply(ctx context.Context, dryRun bool) error {
	command := "apply"
	if dryRun {
		command = "apply --dry-run"
	}
	ctx = a.startRun(ctx, command)
	started := a.now()

	a.printer.PrintBanner(a.target())

	s, err := a.open(ctx)
	if err != nil {
		a.finishApply(ctx, command, &provision.Report{
			RunID:      logger.RunFromContext(ctx).RunID,
			Database:   a.config.Mongo.Database,
			DryRun:     dryRun,
			StartedAt:  started,
			FinishedAt: a.now(),
		}, err)
		return err
	}
	defer a.closeStore(ctx, s)

	report, err := provision.New(s, a.console, provision.Options{DryRun: dryRun}).Apply(ctx, a.plan)
	if report != nil {
		a.printReport(report)
	}
	if err != nil {
		errlogging.Error(ctx, a.logger, "apply failed", err)
		a.printGuidance(err)
	}
	a.finishApply(ctx, command, report, err)
	return err
}

// Verify checks the live database against the plan.
func (a *App) Verify(ctx context.Context) error {
	ctx = a.startRun(ctx, "verify")
	started := a.now()

	a.printer.PrintBanner(a.target())

	s, err := a.open(ctx)
	if err != nil {
		a.finishVerify(ctx, nil, started, err)
		return err
	}
	defer a.closeStore(ctx, s)

	result, err := verify.New(s, a.logger).Verify(ctx, a.plan)
	if err != nil {
		errlogging.Error(ctx, a.logger, "verify failed", err)
		a.finishVerify(ctx, nil, started, err)
		return err
	}

	a.printFindings(result)
	err = result.Err()
	if err != nil {
		errlogging.Error(ctx, a.logger, "verification found problems", err)
	}
	a.finishVerify(ctx, result, started, err)
	return err
}

// ShowPlan prints the plan as mongo shell statements. It does not connect.
func (a *App) ShowPlan(ctx context.Context) error {
	a.printer.PrintHeading(fmt.Sprintf("Plan for %s (%d collections, %d indexes)",
		a.config.Mongo.Database, len(a.plan.Collections), a.plan.IndexCount()))
	a.printer.PrintLines(a.plan.Statements())
	return nil
}

// History prints the most recent journal runs.
func (a *App) History(ctx context.Context, limit int) error {
	if a.config.JournalPath == "" {
		return apperrors.ConfigError(apperrors.CodeJournalDisabled,
			"journal is disabled (set journal_path or --journal)", nil).
			WithModule(module).
			WithOperation("app.History")
	}

	repo, err := a.openJournal(ctx, a.config.JournalPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	runs, err := repo.Recent(ctx, limit)
	if err != nil {
		return err
	}
	a.printHistory(runs)
	return nil
}

// Menu runs the interactive menu.
func (a *App) Menu(ctx context.Context) error {
	actions := menu.Actions{
		Apply:    a.Apply,
		Verify:   a.Verify,
		ShowPlan: a.ShowPlan,
	}
	if a.config.JournalPath != "" {
		actions.History = func(ctx context.Context) error { return a.History(ctx, 0) }
	}
	return menu.NewMenu(a.console, a.printer, a.target(), actions).Run(ctx)
}

func (a *App) open(ctx context.Context) (store.Store, error) {
	a.logger.InfoContext(ctx, "connecting to document store",
		logger.String("uri", config.RedactURI(a.config.Mongo.URI)),
		logger.String("database", a.config.Mongo.Database))

	a.console.StartProgress("Connect to " + a.config.Mongo.Database)
	s, err := a.connect(ctx, a.config.Mongo)
	if err != nil {
		a.console.FailProgress("Connect to " + a.config.Mongo.Database)
		errlogging.Error(ctx, a.logger, "error connecting to document store", err)
		return nil, err
	}
	a.console.StopProgress("Connect to " + a.config.Mongo.Database)
	return s, nil
}

func (a *App) closeStore(ctx context.Context, s store.Store) {
	if err := s.Close(context.WithoutCancel(ctx)); err != nil {
		a.logger.WarnContext(ctx, "failed to close store", logger.Error(err))
	}
}
