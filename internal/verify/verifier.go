// Package verify checks a live store against a schema plan without changing it.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mongoprov/internal/data/store"
	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/logger"
	"mongoprov/internal/schema"
)

const module = "verifier"

// Finding is the outcome of one check.
type Finding struct {
	Check      string
	Collection string
	Target     string
	Passed     bool
	Detail     string
}

// Result collects the findings of one Verify call.
type Result struct {
	Database  string
	Findings  []Finding
	CheckedAt time.Time
}

// Passed reports whether every finding passed.
func (r *Result) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the findings that did not pass.
func (r *Result) Failures() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if !f.Passed {
			out = append(out, f)
		}
	}
	return out
}

// Err converts a failed result into a VALIDATION error listing the failed
// checks. It returns nil for a passing result.
func (r *Result) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	checks := make([]string, len(failures))
	for i, f := range failures {
		checks[i] = f.Check
	}
	return apperrors.ValidationError(apperrors.CodeVerificationFailed,
		fmt.Sprintf("%d of %d checks failed", len(failures), len(r.Findings)), nil).
		WithModule(module).
		WithOperation("verifier.Verify").
		WithFields(apperrors.Metadata{
			"database": r.Database,
			"failed":   strings.Join(checks, "; "),
		})
}

// Verifier inspects a store.
type Verifier struct {
	store  store.Store
	logger logger.Logger
}

// New constructs a Verifier.
func New(s store.Store, log logger.Logger) *Verifier {
	return &Verifier{store: s, logger: log}
}

type check struct {
	name      string
	operation string
	category  apperrors.ErrorCategory
	fn        func(ctx context.Context) error
}

// Verify checks that every collection of the plan exists and that every
// index exists with the planned keys and uniqueness. Indexes are matched by
// key pattern, so an index built under another name still passes. Store
// errors abort the run; failed findings do not.
func (v *Verifier) Verify(ctx context.Context, plan *schema.Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	result := &Result{Database: v.store.Database()}
	existing := make(map[string]bool)

	checks := []check{
		{"Ping", "verifier.ping", apperrors.ErrCategoryNetwork, v.store.Ping},
		{"Collections", "verifier.collections", apperrors.ErrCategoryDatabase, func(ctx context.Context) error {
			names, err := v.store.CollectionNames(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				existing[name] = true
			}
			return nil
		}},
	}
	for _, c := range plan.Collections {
		checks = append(checks, check{
			name:      "Collection " + c.Name,
			operation: "verifier.collection",
			category:  apperrors.ErrCategoryDatabase,
			fn: func(ctx context.Context) error {
				return v.checkCollection(ctx, c, existing[c.Name], result)
			},
		})
	}

	if err := v.runChecks(ctx, checks); err != nil {
		return nil, err
	}

	result.CheckedAt = time.Now()
	if v.logger != nil {
		v.logger.InfoContext(ctx, "verification finished",
			logger.String("database", result.Database),
			logger.Int("checks", len(result.Findings)),
			logger.Int("failures", len(result.Failures())))
	}
	return result, nil
}

func (v *Verifier) runChecks(ctx context.Context, checks []check) error {
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return v.wrapError(apperrors.ErrCategorySystem, c.operation, "verification cancelled", err, nil)
		}
		if err := c.fn(ctx); err != nil {
			return v.wrapError(c.category, c.operation, c.name+" check failed", err, nil)
		}
	}
	return nil
}

func (v *Verifier) checkCollection(ctx context.Context, c schema.CollectionSpec, exists bool, result *Result) error {
	result.Findings = append(result.Findings, Finding{
		Check:      "collection " + c.Name,
		Collection: c.Name,
		Target:     c.Name,
		Passed:     exists,
		Detail:     detailIf(!exists, "collection is missing"),
	})

	var indexes []store.IndexInfo
	if exists {
		var err error
		indexes, err = v.store.Indexes(ctx, c.Name)
		if err != nil {
			return v.wrapError(apperrors.ErrCategoryDatabase, "verifier.indexes", "failed to list indexes", err,
				apperrors.Metadata{"collection": c.Name})
		}
	}

	for _, spec := range c.Indexes {
		result.Findings = append(result.Findings, indexFinding(c.Name, spec, indexes))
	}
	return nil
}

func indexFinding(collection string, spec schema.IndexSpec, indexes []store.IndexInfo) Finding {
	f := Finding{
		Check:      fmt.Sprintf("index %s.%s %s", collection, spec.IndexName(), spec.KeyPattern()),
		Collection: collection,
		Target:     spec.IndexName(),
	}

	for _, idx := range indexes {
		if idx.Matches(spec) {
			f.Passed = true
			if idx.Name != spec.IndexName() {
				f.Detail = "present as " + idx.Name
			}
			return f
		}
	}
	for _, idx := range indexes {
		if spec.SameKeys(idx.Keys) {
			f.Detail = fmt.Sprintf("%s has unique=%t, want unique=%t", idx.Name, idx.Unique, spec.Unique)
			return f
		}
	}
	f.Detail = "index is missing"
	return f
}

func detailIf(cond bool, detail string) string {
	if cond {
		return detail
	}
	return ""
}

func (v *Verifier) wrapError(category apperrors.ErrorCategory, operation, message string, err error, metadata apperrors.Metadata) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		if appErr.Module == "" {
			appErr.WithModule(module)
		}
		if appErr.Operation == "" {
			appErr.WithOperation(operation)
		}
		return appErr.WithFields(metadata)
	}

	return apperrors.New(category, apperrors.CodeForCategory(category), message, err).
		WithModule(module).
		WithOperation(operation).
		WithFields(metadata)
}
