package provision

import (
	"fmt"
	"time"
)

// Kind is the type of object an action touches.
type Kind string

const (
	KindCollection Kind = "collection"
	KindIndex      Kind = "index"
)

// Status is the result of one action.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUnchanged Status = "unchanged"
	StatusPlanned   Status = "planned"
	StatusFailed    Status = "failed"
)

// Action records what Apply did, or would do, for one collection or index.
type Action struct {
	Kind       Kind
	Collection string
	Target     string // collection or index name
	Status     Status
	Detail     string
}

// Label renders the action for display, e.g. "index usuarios.email_1".
func (a Action) Label() string {
	if a.Kind == KindIndex {
		return fmt.Sprintf("index %s.%s", a.Collection, a.Target)
	}
	return fmt.Sprintf("collection %s", a.Target)
}

// Report is the outcome of Apply.
type Report struct {
	RunID      string
	Database   string
	DryRun     bool
	Actions    []Action
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Report) add(a Action) {
	r.Actions = append(r.Actions, a)
}

// Count returns the number of actions with status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, a := range r.Actions {
		if a.Status == status {
			n++
		}
	}
	return n
}

// Created returns the number of created actions.
func (r *Report) Created() int { return r.Count(StatusCreated) }

// Unchanged returns the number of actions that found the object in place.
func (r *Report) Unchanged() int { return r.Count(StatusUnchanged) }

// Failed returns the number of failed actions.
func (r *Report) Failed() int { return r.Count(StatusFailed) }

// Succeeded reports whether no action failed.
func (r *Report) Succeeded() bool {
	return r.Failed() == 0
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary renders the counts, e.g. "2 created, 4 unchanged, 0 failed".
func (r *Report) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("%d planned, %d unchanged", r.Count(StatusPlanned), r.Count(StatusUnchanged))
	}
	return fmt.Sprintf("%d created, %d unchanged, %d failed",
		r.Created(), r.Unchanged(), r.Failed())
}
