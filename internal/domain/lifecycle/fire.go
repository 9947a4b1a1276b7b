package lifecycle

import (
	"context"

	"github.com/garyjia/bizflow/internal/domain/workflow"
)

// fire runs trigger against table for subject and returns the new status.
// Failures wrap entity.ErrInvalidTransition.
func fire[T any](ctx context.Context, table *workflow.Table[T], subject T, current string, trigger workflow.Trigger) (string, error) {
	next, err := table.Fire(ctx, subject, st(current), trigger)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}

func states(values ...string) []workflow.State {
	out := make([]workflow.State, len(values))
	for i, v := range values {
		out[i] = workflow.State(v)
	}
	return out
}

func st(s string) workflow.State {
	return workflow.State(s)
}
