package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LaborAggregator owns the cached per-project labor aggregate
// (total_labor_hours, total_labor_cost, last_calculated_at).
//
// It never opens its own transaction: Reconcile and RecalculateProject run in
// whatever transaction context the caller passes in, so a failed recalculation
// rolls back the schedule or rate mutation that triggered it. A schedule is
// never persisted next to a stale aggregate.
type LaborAggregator interface {
	// AffectedProjects returns every project referenced by either actuals
	// snapshot — the set whose totals may have changed. Pure set
	// reconciliation; the two-project reassignment case (an actual moving
	// from project A to B) yields both A and B.
	AffectedProjects(prev, next []model.ScheduleActual) []uuid.UUID

	// Reconcile recomputes the aggregate for every affected project.
	// All-or-nothing: the first failure aborts the whole set, and since it
	// runs inside the caller's transaction nothing is left half-written.
	Reconcile(txCtx context.Context, prev, next []model.ScheduleActual) ([]uuid.UUID, error)

	// RecalculateProject is the second trigger path, keyed by project rather
	// than by schedule: an hourly-rate change rescales cost over unchanged
	// hours.
	RecalculateProject(txCtx context.Context, projectID uuid.UUID) error
}

type laborAggregator struct {
	projectRepo  repository.ProjectRepository
	scheduleRepo repository.ScheduleRepository
	now          func() time.Time
}

func NewLaborAggregator(projectRepo repository.ProjectRepository, scheduleRepo repository.ScheduleRepository) LaborAggregator {
	return &laborAggregator{
		projectRepo:  projectRepo,
		scheduleRepo: scheduleRepo,
		now:          time.Now,
	}
}

func (a *laborAggregator) AffectedProjects(prev, next []model.ScheduleActual) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	for _, actual := range prev {
		if actual.ProjectID != nil {
			seen[*actual.ProjectID] = true
		}
	}
	for _, actual := range next {
		if actual.ProjectID != nil {
			seen[*actual.ProjectID] = true
		}
	}

	affected := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		affected = append(affected, id)
	}
	// Deterministic order so retries and tests see the same recalculation
	// sequence.
	sort.Slice(affected, func(i, j int) bool {
		return affected[i].String() < affected[j].String()
	})
	return affected
}

func (a *laborAggregator) Reconcile(txCtx context.Context, prev, next []model.ScheduleActual) ([]uuid.UUID, error) {
	affected := a.AffectedProjects(prev, next)
	for _, projectID := range affected {
		if err := a.RecalculateProject(txCtx, projectID); err != nil {
			return nil, err
		}
	}
	return affected, nil
}

func (a *laborAggregator) RecalculateProject(txCtx context.Context, projectID uuid.UUID) error {
	// Row lock on the project serializes concurrent recalculations; without
	// it two schedules hitting the same project can lose one update.
	project, err := a.projectRepo.FindByIDForUpdate(txCtx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return fmt.Errorf("failed to load project %s: %w", projectID, err)
	}

	hours, err := a.scheduleRepo.SumHoursByProject(txCtx, projectID)
	if err != nil {
		return fmt.Errorf("failed to sum actuals for project %s: %w", projectID, err)
	}

	cost := hours.Mul(project.EffectiveHourlyRate())
	if err := a.projectRepo.UpdateLaborAggregate(txCtx, projectID, hours, cost, a.now()); err != nil {
		return fmt.Errorf("failed to write labor aggregate for project %s: %w", projectID, err)
	}
	return nil
}
