package provision

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"mongoprov/internal/data/store"
	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/logger"
	"mongoprov/internal/schema"
	"mongoprov/internal/ui"
)

func newTestProvisioner(t *testing.T, s store.Store, opts Options) (*Provisioner, *logger.MockLogger) {
	t.Helper()
	log := logger.NewMockLogger()
	console := ui.NewConsole(log, &bytes.Buffer{})
	return New(s, console, opts), log
}

func defaultPlan(t *testing.T) *schema.Plan {
	t.Helper()
	plan, err := schema.DefaultPlan()
	require.NoError(t, err)
	return plan
}

func statuses(r *Report) map[string]Status {
	out := make(map[string]Status, len(r.Actions))
	for _, a := range r.Actions {
		out[a.Label()] = a.Status
	}
	return out
}

func TestApplyOnEmptyDatabase(t *testing.T) {
	s := store.NewMemoryStore("examen_parcial_db")
	p, log := newTestProvisioner(t, s, Options{})

	ctx := logger.ContextWithRun(context.Background(), logger.RunContext{RunID: "run-1", Command: "apply"})
	report, err := p.Apply(ctx, defaultPlan(t))
	require.NoError(t, err)
	require.Equal(t, "run-1", report.RunID)
	require.Equal(t, "examen_parcial_db", report.Database)
	require.True(t, report.Succeeded())

	require.Equal(t, map[string]Status{
		"collection usuarios":                     StatusCreated,
		"index usuarios.email_1":                  StatusCreated,
		"index usuarios.mysql_id_1":               StatusCreated,
		"collection logs_actividad":               StatusCreated,
		"index logs_actividad.usuario_id_mysql_1": StatusCreated,
		"index logs_actividad.fecha_-1":           StatusCreated,
	}, statuses(report))
	require.Equal(t, "6 created, 0 unchanged, 0 failed", report.Summary())

	require.Equal(t, []string{
		"createCollection usuarios",
		"createIndex usuarios email_1",
		"createIndex usuarios mysql_id_1",
		"createCollection logs_actividad",
		"createIndex logs_actividad usuario_id_mysql_1",
		"createIndex logs_actividad fecha_-1",
	}, s.Calls())

	indexes, err := s.Indexes(context.Background(), "usuarios")
	require.NoError(t, err)
	require.Len(t, indexes, 3)
	require.True(t, indexes[1].Unique)
	require.False(t, indexes[2].Unique)

	require.True(t, log.HasEntry(logger.LevelInfo, "plan applied"))
}

func TestApplyTwiceLeavesStoreUntouched(t *testing.T) {
	s := store.NewMemoryStore("examen_parcial_db")
	p, _ := newTestProvisioner(t, s, Options{})
	plan := defaultPlan(t)

	_, err := p.Apply(context.Background(), plan)
	require.NoError(t, err)
	callsAfterFirst := len(s.Calls())

	report, err := p.Apply(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, s.Calls(), callsAfterFirst)
	require.Equal(t, 6, report.Count(StatusUnchanged))
	require.Equal(t, "0 created, 6 unchanged, 0 failed", report.Summary())

	indexes, err := s.Indexes(context.Background(), "logs_actividad")
	require.NoError(t, err)
	require.Len(t, indexes, 3)
}

func TestApplyCreatesOnlyMissingIndexes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore("db")
	plan := defaultPlan(t)

	usuarios, ok := plan.Collection("usuarios")
	require.True(t, ok)
	_, err := s.CreateIndex(ctx, "usuarios", usuarios.Indexes[0])
	require.NoError(t, err)

	p, _ := newTestProvisioner(t, s, Options{})
	report, err := p.Apply(ctx, plan)
	require.NoError(t, err)

	got := statuses(report)
	require.Equal(t, StatusUnchanged, got["collection usuarios"])
	require.Equal(t, StatusUnchanged, got["index usuarios.email_1"])
	require.Equal(t, StatusCreated, got["index usuarios.mysql_id_1"])
	require.Equal(t, StatusCreated, got["collection logs_actividad"])
}

func TestApplyRecognisesIndexUnderAnotherName(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore("db")
	_, err := s.CreateIndex(ctx, "usuarios", schema.IndexSpec{
		Name:   "uniq_email",
		Keys:   []schema.KeyField{{Field: "email", Order: schema.Ascending}},
		Unique: true,
	})
	require.NoError(t, err)

	p, _ := newTestProvisioner(t, s, Options{})
	report, err := p.Apply(ctx, defaultPlan(t))
	require.NoError(t, err)

	for _, a := range report.Actions {
		if a.Target == "email_1" {
			require.Equal(t, StatusUnchanged, a.Status)
			require.Equal(t, "unique, present as uniq_email", a.Detail)
		}
	}
}

func TestApplyDryRunChangesNothing(t *testing.T) {
	s := store.NewMemoryStore("db")
	p, _ := newTestProvisioner(t, s, Options{DryRun: true})

	report, err := p.Apply(context.Background(), defaultPlan(t))
	require.NoError(t, err)
	require.True(t, report.DryRun)
	require.Equal(t, 6, report.Count(StatusPlanned))
	require.Equal(t, "6 planned, 0 unchanged", report.Summary())
	require.Empty(t, s.Calls())

	names, err := s.CollectionNames(context.Background())
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestApplyReportsDuplicateEmails(t *testing.T) {
	s := store.NewMemoryStore("db")
	s.Seed("usuarios",
		store.Document{"email": "ana@example.com", "mysql_id": 1},
		store.Document{"email": "ana@example.com", "mysql_id": 2},
	)
	p, _ := newTestProvisioner(t, s, Options{})

	report, err := p.Apply(context.Background(), defaultPlan(t))
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateValues))
	require.Contains(t, err.Error(), "Ensure index usuarios.email_1 failed")

	require.False(t, report.Succeeded())
	last := report.Actions[len(report.Actions)-1]
	require.Equal(t, "email_1", last.Target)
	require.Equal(t, StatusFailed, last.Status)
	require.Contains(t, last.Detail, "remove the duplicates")

	_, reached := statuses(report)["collection logs_actividad"]
	require.False(t, reached, "apply must stop at the first failure")
}

func TestApplyRefusesToReplaceConflictingIndex(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore("db")
	_, err := s.CreateIndex(ctx, "usuarios", schema.IndexSpec{
		Keys: []schema.KeyField{{Field: "email", Order: schema.Ascending}},
	})
	require.NoError(t, err)
	before := len(s.Calls())

	p, _ := newTestProvisioner(t, s, Options{})
	report, err := p.Apply(ctx, defaultPlan(t))
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeIndexConflict))
	require.Len(t, s.Calls(), before)
	require.Equal(t, 1, report.Count(StatusFailed))

	indexes, err := s.Indexes(ctx, "usuarios")
	require.NoError(t, err)
	require.Len(t, indexes, 2)
	require.False(t, indexes[1].Unique)
}

func TestApplyFailsWhenStoreIsUnreachable(t *testing.T) {
	s := store.NewMemoryStore("db")
	s.SetUnavailable(stderrors.New("connection refused"))
	p, _ := newTestProvisioner(t, s, Options{})

	report, err := p.Apply(context.Background(), defaultPlan(t))
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeStoreUnavailable))
	require.Empty(t, report.Actions)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	require.Equal(t, apperrors.ErrCategoryNetwork, appErr.Category)
}

func TestApplyRejectsInvalidPlan(t *testing.T) {
	s := store.NewMemoryStore("db")
	p, _ := newTestProvisioner(t, s, Options{})

	plan := &schema.Plan{Collections: []schema.CollectionSpec{{Name: ""}}}
	report, err := p.Apply(context.Background(), plan)
	require.Nil(t, report)
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidPlan))
	require.Empty(t, s.Calls())
}

func TestApplyStopsWhenContextIsCancelled(t *testing.T) {
	s := store.NewMemoryStore("db")
	p, _ := newTestProvisioner(t, s, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Apply(ctx, defaultPlan(t))
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, s.Calls())
}

func TestPipelineUsesErrorHandler(t *testing.T) {
	console := ui.NewConsole(logger.NewMockLogger(), &bytes.Buffer{})
	var ran []string
	boom := stderrors.New("boom")

	steps := []Step{
		{Name: "first", Fn: func(context.Context) error { ran = append(ran, "first"); return nil }},
		{Name: "second", Category: apperrors.ErrCategoryDatabase, Fn: func(context.Context) error { ran = append(ran, "second"); return boom }},
		{Name: "third", Fn: func(context.Context) error { ran = append(ran, "third"); return nil }},
	}

	var handled string
	err := NewPipeline(console, nil, steps, func(step Step, err error) error {
		handled = step.Name
		return err
	}).Execute(context.Background())

	require.ErrorIs(t, err, boom)
	require.Equal(t, "second", handled)
	require.Equal(t, []string{"first", "second"}, ran)
}
