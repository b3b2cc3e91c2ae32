// Package provision applies a schema plan to a store, idempotently.
package provision

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"mongoprov/internal/data/store"
	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/logger"
	"mongoprov/internal/schema"
	"mongoprov/internal/ui"
)

const module = "provision"

// Options tunes a Provisioner.
type Options struct {
	// DryRun inspects the store and reports what would be created.
	DryRun bool
}

// Provisioner ensures the collections and indexes of a plan exist.
type Provisioner struct {
	store   store.Store
	console *ui.Console
	logger  logger.Logger
	opts    Options
	now     func() time.Time
}

// New creates a Provisioner writing progress to console.
func New(s store.Store, console *ui.Console, opts Options) *Provisioner {
	log := console.Logger()
	if log == nil {
		log = logger.NewStandardLogger()
	}
	return &Provisioner{
		store:   s,
		console: console,
		logger:  log,
		opts:    opts,
		now:     time.Now,
	}
}

// Apply runs the plan in order and stops at the first failure. The report
// lists every action reached, including the failed one. Existing collections
// and indexes that already match the plan are left untouched, so running
// Apply again is safe.
func (p *Provisioner) Apply(ctx context.Context, plan *schema.Plan) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     logger.RunFromContext(ctx).RunID,
		Database:  p.store.Database(),
		DryRun:    p.opts.DryRun,
		StartedAt: p.now(),
	}

	existing := make(map[string]bool)
	steps := []Step{
		{
			Name:      "Ping " + report.Database,
			Operation: "provision.ping",
			Category:  apperrors.ErrCategoryNetwork,
			Fn:        p.store.Ping,
		},
		{
			Name:      "Inspect collections",
			Operation: "provision.inspect",
			Category:  apperrors.ErrCategoryDatabase,
			Fn: func(ctx context.Context) error {
				names, err := p.store.CollectionNames(ctx)
				if err != nil {
					return err
				}
				for _, name := range names {
					existing[name] = true
				}
				return nil
			},
		},
	}

	for _, c := range plan.Collections {
		steps = append(steps, Step{
			Name:      "Ensure collection " + c.Name,
			Operation: "provision.ensureCollection",
			Category:  apperrors.ErrCategoryDatabase,
			Fn: func(ctx context.Context) error {
				return p.ensureCollection(ctx, c, existing[c.Name], report)
			},
		})
		for _, idx := range c.Indexes {
			steps = append(steps, Step{
				Name:      "Ensure index " + c.Name + "." + idx.IndexName(),
				Operation: "provision.ensureIndex",
				Category:  apperrors.ErrCategoryDatabase,
				Fn: func(ctx context.Context) error {
					return p.ensureIndex(ctx, c.Name, idx, report)
				},
			})
		}
	}

	err := NewPipeline(p.console, p.logger, steps, p.handleStepError).Execute(ctx)
	report.FinishedAt = p.now()

	if err == nil {
		p.logger.InfoContext(ctx, "plan applied",
			logger.String("database", report.Database),
			logger.Any("dry_run", report.DryRun),
			logger.String("summary", report.Summary()))
	}
	return report, err
}

func (p *Provisioner) ensureCollection(ctx context.Context, c schema.CollectionSpec, exists bool, report *Report) error {
	action := Action{Kind: KindCollection, Collection: c.Name, Target: c.Name}

	switch {
	case exists:
		action.Status = StatusUnchanged
	case p.opts.DryRun:
		action.Status = StatusPlanned
	default:
		err := p.store.CreateCollection(ctx, c.Name)
		switch {
		case err == nil:
			action.Status = StatusCreated
			p.logger.InfoContext(ctx, "collection created", logger.String("collection", c.Name))
		case apperrors.HasCode(err, apperrors.CodeNamespaceExists):
			action.Status = StatusUnchanged
			action.Detail = "created concurrently"
		default:
			action.Status = StatusFailed
			action.Detail = errorDetail(err)
			report.add(action)
			return err
		}
	}

	report.add(action)
	return nil
}

func (p *Provisioner) ensureIndex(ctx context.Context, collection string, spec schema.IndexSpec, report *Report) error {
	action := Action{Kind: KindIndex, Collection: collection, Target: spec.IndexName()}
	if spec.Unique {
		action.Detail = "unique"
	}

	indexes, err := p.store.Indexes(ctx, collection)
	if err != nil {
		action.Status = StatusFailed
		action.Detail = errorDetail(err)
		report.add(action)
		return err
	}

	for _, existing := range indexes {
		if existing.Matches(spec) {
			action.Status = StatusUnchanged
			if existing.Name != spec.IndexName() {
				action.Detail = joinDetail(action.Detail, "present as "+existing.Name)
			}
			report.add(action)
			return nil
		}
		if spec.SameKeys(existing.Keys) {
			conflict := apperrors.DatabaseError(apperrors.CodeIndexConflict,
				"an index with the same keys but different uniqueness exists; it is not dropped automatically", nil).
				WithModule(module).
				WithOperation("provision.ensureIndex").
				WithFields(apperrors.Metadata{
					"collection":      collection,
					"index":           spec.IndexName(),
					"existing_index":  existing.Name,
					"existing_unique": existing.Unique,
				})
			action.Status = StatusFailed
			action.Detail = errorDetail(conflict)
			report.add(action)
			return conflict
		}
	}

	if p.opts.DryRun {
		action.Status = StatusPlanned
		report.add(action)
		return nil
	}

	if _, err := p.store.CreateIndex(ctx, collection, spec); err != nil {
		action.Status = StatusFailed
		action.Detail = errorDetail(err)
		report.add(action)
		return err
	}

	action.Status = StatusCreated
	report.add(action)
	p.logger.InfoContext(ctx, "index created",
		logger.String("collection", collection),
		logger.String("index", spec.IndexName()),
		logger.String("keys", spec.KeyPattern()),
		logger.Any("unique", spec.Unique))
	return nil
}

func (p *Provisioner) handleStepError(step Step, err error) error {
	if appErr, ok := apperrors.As(err); ok {
		if appErr.Operation == "" {
			appErr.WithOperation(step.Operation)
		}
		return errors.Wrapf(appErr, "%s failed", step.Name)
	}

	return apperrors.New(step.Category, apperrors.CodeForCategory(step.Category), step.Name+" failed", err).
		WithModule(module).
		WithOperation(step.Operation)
}

func errorDetail(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func joinDetail(a, b string) string {
	if a == "" {
		return b
	}
	return a + ", " + b
}
