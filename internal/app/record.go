package app

import (
	"context"
	"time"

	"mongoprov/internal/data/journal"
	"mongoprov/internal/logger"
	"mongoprov/internal/provision"
	"mongoprov/internal/verify"
)

func (a *App) finishApply(ctx context.Context, command string, report *provision.Report, runErr error) {
	a.metrics.ObserveReport(report, runErr)

	run := journal.Run{
		ID:         logger.RunFromContext(ctx).RunID,
		Command:    command,
		Database:   a.config.Mongo.Database,
		StartedAt:  a.now(),
		FinishedAt: a.now(),
	}
	if report != nil {
		run.StartedAt = report.StartedAt
		run.FinishedAt = report.FinishedAt
		for _, action := range report.Actions {
			run.Actions = append(run.Actions, journal.Action{
				Kind:       string(action.Kind),
				Collection: action.Collection,
				Target:     action.Target,
				Status:     string(action.Status),
				Detail:     action.Detail,
			})
		}
	}
	a.finish(ctx, run, runErr)
}

func (a *App) finishVerify(ctx context.Context, result *verify.Result, started time.Time, runErr error) {
	a.metrics.ObserveVerification(result, started, runErr)

	run := journal.Run{
		ID:         logger.RunFromContext(ctx).RunID,
		Command:    "verify",
		Database:   a.config.Mongo.Database,
		StartedAt:  started,
		FinishedAt: a.now(),
	}
	if result != nil {
		for _, f := range result.Findings {
			status := "passed"
			if !f.Passed {
				status = "failed"
			}
			run.Actions = append(run.Actions, journal.Action{
				Kind:       "check",
				Collection: f.Collection,
				Target:     f.Target,
				Status:     status,
				Detail:     f.Detail,
			})
		}
	}
	a.finish(ctx, run, runErr)
}

// finish journals the run and exports metrics. Failures here are logged and
// never change the command's result.
func (a *App) finish(ctx context.Context, run journal.Run, runErr error) {
	run.Outcome = journal.OutcomeSucceeded
	if runErr != nil {
		run.Outcome = journal.OutcomeFailed
		run.Error = runErr.Error()
	}

	if a.config.JournalPath != "" {
		a.record(ctx, run)
	}

	if err := a.metrics.WriteTextfile(a.config.MetricsPath); err != nil {
		a.logger.WarnContext(ctx, "failed to export metrics", logger.Error(err))
	}
}

func (a *App) record(ctx context.Context, run journal.Run) {
	ctx = context.WithoutCancel(ctx)
	repo, err := a.openJournal(ctx, a.config.JournalPath)
	if err != nil {
		a.logger.WarnContext(ctx, "failed to open journal", logger.Error(err),
			logger.String("path", a.config.JournalPath))
		return
	}
	defer repo.Close()

	if err := repo.Record(ctx, run); err != nil {
		a.logger.WarnContext(ctx, "failed to record run", logger.Error(err))
		return
	}
	a.logger.DebugContext(ctx, "run recorded", logger.Int("actions", len(run.Actions)))
}
