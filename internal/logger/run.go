package logger

import "context"

type runKey struct{}

// RunContext identifies one invocation of a command for log correlation.
type RunContext struct {
	RunID   string
	Command string
}

// ContextWithRun returns a derived context carrying run.
func ContextWithRun(ctx context.Context, run RunContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runKey{}, run)
}

// RunFromContext extracts the RunContext stored in ctx, if any.
func RunFromContext(ctx context.Context) RunContext {
	if ctx == nil {
		return RunContext{}
	}
	if run, ok := ctx.Value(runKey{}).(RunContext); ok {
		return run
	}
	return RunContext{}
}

func runFieldsFromContext(ctx context.Context) []Field {
	run := RunFromContext(ctx)
	var fields []Field
	if run.RunID != "" {
		fields = append(fields, String("run_id", run.RunID))
	}
	if run.Command != "" {
		fields = append(fields, String("command", run.Command))
	}
	return fields
}
