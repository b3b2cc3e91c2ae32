// Package menu is the interactive front end over the provisioning commands.
package menu

import (
	"context"
	"errors"

	"github.com/manifoldco/promptui"
	pkgerrors "github.com/pkg/errors"

	"mongoprov/internal/logger"
	"mongoprov/internal/ui"
)

// Menu is the interactive menu manager.
type Menu struct {
	console *ui.Console
	logger  logger.Logger
	printer *ui.Printer
	target  string
	actions Actions

	selectFn  func(items []string) (int, error)
	confirmFn func(label string) (bool, error)
	pauseFn   func(message string)
}

// NewMenu creates a menu for the database described by target. A nil
// printer writes to stdout.
func NewMenu(console *ui.Console, printer *ui.Printer, target string, actions Actions) *Menu {
	var log logger.Logger
	if console != nil {
		log = console.Logger()
	}
	if log == nil {
		log = logger.NewStandardLogger()
	}
	if printer == nil {
		printer = ui.NewPrinter()
	}

	return &Menu{
		console:   console,
		logger:    log,
		printer:   printer,
		target:    target,
		actions:   actions,
		selectFn:  promptSelect,
		confirmFn: promptConfirm,
		pauseFn:   waitForUserInput,
	}
}

// Run shows the main menu until the user exits or ctx is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		m.printer.PrintBanner(m.target)
		options := m.buildOptions()

		selected, err := m.promptUserSelection(options)
		if err != nil {
			if isInterrupt(err) {
				m.logger.Info("User cancelled operation")
				return nil
			}
			return pkgerrors.Wrap(err, "failed to process user input")
		}

		option := options[selected]
		if option.exit {
			return nil
		}

		if option.Confirm != "" {
			ok, err := m.confirmFn(option.Confirm)
			if err != nil && !errors.Is(err, promptui.ErrAbort) {
				if isInterrupt(err) {
					continue
				}
				return pkgerrors.Wrap(err, "failed to read confirmation")
			}
			if !ok {
				m.logger.Info("Skipped: %s", option.Description)
				continue
			}
		}

		if err := option.Handler(ctx); err != nil {
			m.logger.Error("Operation failed: %v", err)
		}
		m.pauseFn("\nPress Enter to continue...")
	}
}

func (m *Menu) buildOptions() []MenuOption {
	return []MenuOption{
		{
			Label:       "1. Apply plan",
			Description: "Create missing collections and indexes",
			Handler:     func(ctx context.Context) error { return m.actions.Apply(ctx, false) },
			Color:       "green",
			Enabled:     m.actions.Apply != nil,
			Confirm:     "Apply the plan to " + m.target,
		},
		{
			Label:       "2. Dry run",
			Description: "Show what apply would create",
			Handler:     func(ctx context.Context) error { return m.actions.Apply(ctx, true) },
			Color:       "cyan",
			Enabled:     m.actions.Apply != nil,
		},
		{
			Label:       "3. Verify",
			Description: "Check collections and indexes against the plan",
			Handler:     m.actions.Verify,
			Color:       "cyan",
			Enabled:     m.actions.Verify != nil,
		},
		{
			Label:       "4. Show plan",
			Description: "Print the plan as shell statements",
			Handler:     m.actions.ShowPlan,
			Color:       "yellow",
			Enabled:     m.actions.ShowPlan != nil,
		},
		{
			Label:       "5. History",
			Description: "Recent runs from the journal",
			Handler:     m.actions.History,
			Color:       "yellow",
			Enabled:     m.actions.History != nil,
		},
		{
			Label:   "0. Exit",
			Color:   "red",
			Enabled: true,
			exit:    true,
		},
	}
}

func isInterrupt(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}
