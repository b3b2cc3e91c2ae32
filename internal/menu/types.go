package menu

import "context"

// MenuOption represents a selectable option shown to the user.
type MenuOption struct {
	Label       string
	Description string
	Handler     func(ctx context.Context) error
	Color       string
	Enabled     bool
	Confirm     string // asked before Handler runs when set
	exit        bool
}

// Actions are the commands the menu dispatches to.
type Actions struct {
	Apply    func(ctx context.Context, dryRun bool) error
	Verify   func(ctx context.Context) error
	ShowPlan func(ctx context.Context) error
	History  func(ctx context.Context) error // nil when journaling is disabled
}
