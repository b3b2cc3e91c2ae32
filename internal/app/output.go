package app

import (
	"fmt"
	"strconv"
	"time"

	"mongoprov/internal/data/journal"
	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/provision"
	"mongoprov/internal/ui"
	"mongoprov/internal/verify"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func (a *App) printReport(report *provision.Report) {
	title := "Apply"
	if report.DryRun {
		title = "Dry run"
	}
	a.printer.PrintHeading(fmt.Sprintf("%s on %s", title, report.Database))
	for _, action := range report.Actions {
		a.printer.PrintStatus(action.Label(), ui.Status(action.Status), action.Detail)
	}
	a.printer.PrintSeparator("-", 57)
	a.console.WriteLine("%s in %s", report.Summary(), report.Duration().Round(time.Millisecond))
}

func (a *App) printGuidance(err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		return
	}
	switch appErr.Code {
	case apperrors.CodeDuplicateValues:
		a.console.WriteLine("Collection %v holds documents with duplicate %v values.",
			appErr.Metadata["collection"], appErr.Metadata["keys"])
		a.console.WriteLine("Remove or merge the duplicates, then run apply again. Indexes already built are kept.")
	case apperrors.CodeIndexConflict:
		a.console.WriteLine("Index %v on %v differs from the plan and is left in place.",
			firstNonEmpty(appErr.Metadata["existing_index"], appErr.Metadata["index"]), appErr.Metadata["collection"])
		a.console.WriteLine("Drop it manually if the planned definition should replace it, then run apply again.")
	case apperrors.CodeStoreUnavailable:
		a.console.WriteLine("Check MONGO_URI and that the server is reachable.")
	}
}

func (a *App) printFindings(result *verify.Result) {
	a.printer.PrintHeading("Verify " + result.Database)
	for _, f := range result.Findings {
		status := ui.StatusPassed
		if !f.Passed {
			status = ui.StatusFailed
		}
		a.printer.PrintStatus(f.Check, status, f.Detail)
	}
	a.printer.PrintSeparator("-", 57)
	a.console.WriteLine("%d checks, %d failed", len(result.Findings), len(result.Failures()))
}

func (a *App) printHistory(runs []journal.Run) {
	if len(runs) == 0 {
		a.console.WriteLine("No runs recorded yet.")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt.Local().Format(historyTimeLayout),
			run.Command,
			run.Database,
			string(run.Outcome),
			strconv.Itoa(len(run.Actions)),
			run.Error,
		})
	}
	a.printer.PrintTable([]string{"STARTED", "COMMAND", "DATABASE", "OUTCOME", "ACTIONS", "ERROR"}, rows)
}

func firstNonEmpty(values ...interface{}) interface{} {
	for _, v := range values {
		if v != nil && v != "" {
			return v
		}
	}
	return ""
}
