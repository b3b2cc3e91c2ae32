// Package journal keeps a local history of provisioning runs.
package journal

import (
	"context"
	"time"
)

// Outcome is the final state of a run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Action is one recorded step of a run.
type Action struct {
	Kind       string
	Collection string
	Target     string
	Status     string
	Detail     string
}

// Run is one invocation of a command against a database.
type Run struct {
	ID         string
	Command    string
	Database   string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	Error      string
	Actions    []Action
}

// Repository persists runs.
type Repository interface {
	// Bootstrap prepares the backing store.
	Bootstrap(ctx context.Context) error
	Record(ctx context.Context, run Run) error
	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
