package provision

import (
	"context"

	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/logger"
	"mongoprov/internal/ui"
)

// Step is one named phase of a run.
type Step struct {
	Name      string
	Operation string
	Category  apperrors.ErrorCategory
	Fn        func(ctx context.Context) error
}

// StepErrorHandler turns a step failure into the error returned by Execute.
type StepErrorHandler func(step Step, err error) error

// Pipeline executes steps sequentially and stops at the first failure.
type Pipeline struct {
	steps   []Step
	console *ui.Console
	logger  logger.Logger
	onError StepErrorHandler
}

// NewPipeline constructs a pipeline. A nil handler returns step errors as is.
func NewPipeline(console *ui.Console, log logger.Logger, steps []Step, handler StepErrorHandler) *Pipeline {
	return &Pipeline{
		steps:   steps,
		console: console,
		logger:  log,
		onError: handler,
	}
}

// Execute runs the steps in order. Cancellation is checked before each step.
func (p *Pipeline) Execute(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return p.fail(step, apperrors.SystemError(apperrors.CodeSystemGeneric, "run cancelled", err))
		}

		if p.logger != nil {
			p.logger.Debug("Executing step: %s", step.Name)
		}
		p.console.StartProgress(step.Name)

		if err := step.Fn(ctx); err != nil {
			p.console.FailProgress(step.Name)
			return p.fail(step, err)
		}
		p.console.StopProgress(step.Name)
	}
	return nil
}

func (p *Pipeline) fail(step Step, err error) error {
	if p.onError != nil {
		return p.onError(step, err)
	}
	return err
}
