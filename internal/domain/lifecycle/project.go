package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/workflow"
)

const (
	progressExecuting = 50
	progressCompleted = 100
)

var projectTable = buildProjectTable()

func buildProjectTable() *workflow.Table[*entity.Project] {
	b := workflow.NewBuilder[*entity.Project](string(entity.KindProject), states(
		entity.ProjectStatusPlanning,
		entity.ProjectStatusExecuting,
		entity.ProjectStatusTesting,
		entity.ProjectStatusCompleted,
		entity.ProjectStatusSuspended,
		entity.ProjectStatusCancelled,
	)...)

	b.Configure(st(entity.ProjectStatusPlanning)).
		Permit(TriggerReachHalf, st(entity.ProjectStatusExecuting))
	b.Configure(st(entity.ProjectStatusExecuting)).
		Permit(TriggerStartTesting, st(entity.ProjectStatusTesting))
	// Reaching half progress resumes a suspended project. TESTING is
	// further along and never falls back to EXECUTING.
	b.Configure(st(entity.ProjectStatusSuspended)).
		Permit(TriggerResume, st(entity.ProjectStatusExecuting)).
		Permit(TriggerReachHalf, st(entity.ProjectStatusExecuting))

	for _, open := range []string{
		entity.ProjectStatusPlanning,
		entity.ProjectStatusExecuting,
		entity.ProjectStatusTesting,
		entity.ProjectStatusSuspended,
	} {
		b.Configure(st(open)).
			Permit(TriggerReachFull, st(entity.ProjectStatusCompleted)).
			Permit(TriggerCancel, st(entity.ProjectStatusCancelled))
		if open != entity.ProjectStatusSuspended {
			b.Configure(st(open)).Permit(TriggerSuspend, st(entity.ProjectStatusSuspended))
		}
	}

	return b.MustBuild()
}

// NewProject prepares a project for its first save
func NewProject(p *entity.Project, now time.Time) {
	p.Status = entity.ProjectStatusPlanning
	p.Progress = 0
	p.CreatedAt = now
	p.UpdatedAt = now
}

// ClampProgress bounds a progress value to [0,100]
func ClampProgress(progress int) int {
	switch {
	case progress < 0:
		return 0
	case progress > progressCompleted:
		return progressCompleted
	default:
		return progress
	}
}

// SetProgress records progress and derives the status from it:
// 100 completes the project, 50 starts execution of a planned project,
// anything lower leaves the status alone. A completed project keeps
// progress 100 and status COMPLETED regardless of later updates.
func SetProgress(ctx context.Context, p *entity.Project, progress int, now time.Time) error {
	switch p.Status {
	case entity.ProjectStatusCompleted:
		return nil
	case entity.ProjectStatusCancelled:
		return fmt.Errorf("%w: %s: cannot update progress of a cancelled project", entity.ErrInvalidTransition, entity.KindProject)
	}

	progress = ClampProgress(progress)

	var trigger workflow.Trigger
	switch {
	case progress >= progressCompleted:
		trigger = TriggerReachFull
	case progress >= progressExecuting && projectTable.CanFire(st(p.Status), TriggerReachHalf):
		trigger = TriggerReachHalf
	}

	if trigger != "" {
		next, err := fire(ctx, projectTable, p, p.Status, trigger)
		if err != nil {
			return err
		}
		p.Status = next
	}

	p.Progress = progress
	p.UpdatedAt = now
	return nil
}

// StartTesting moves an executing project to TESTING
func StartTesting(ctx context.Context, p *entity.Project, now time.Time) error {
	return advanceProject(ctx, p, TriggerStartTesting, now)
}

// SuspendProject pauses an open project
func SuspendProject(ctx context.Context, p *entity.Project, now time.Time) error {
	return advanceProject(ctx, p, TriggerSuspend, now)
}

// ResumeProject moves a suspended project back to EXECUTING
func ResumeProject(ctx context.Context, p *entity.Project, now time.Time) error {
	return advanceProject(ctx, p, TriggerResume, now)
}

// CancelProject moves an open project to CANCELLED
func CancelProject(ctx context.Context, p *entity.Project, now time.Time) error {
	return advanceProject(ctx, p, TriggerCancel, now)
}

func advanceProject(ctx context.Context, p *entity.Project, trigger workflow.Trigger, now time.Time) error {
	next, err := fire(ctx, projectTable, p, p.Status, trigger)
	if err != nil {
		return err
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}
