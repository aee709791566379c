package service

import (
	"context"
	"fmt"
	"testing"

	"backend/internal/database"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedProject(t *testing.T, db *gorm.DB, number string, rate *decimal.Decimal) model.Project {
	project := model.Project{
		ProjectNumber: number,
		ProjectName:   "Project " + number,
		ProjectType:   model.ProjectTypeDevelopment,
		Status:        model.ProjectStatusInProgress,
		HourlyRate:    rate,
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

func newTestScheduleService(db *gorm.DB) (ScheduleService, LaborAggregator, repository.ProjectRepository) {
	projectRepo := repository.NewProjectRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)
	aggregator := NewLaborAggregator(projectRepo, scheduleRepo)
	svc := NewScheduleService(scheduleRepo, auditRepo, aggregator, txManager, nil)
	return svc, aggregator, projectRepo
}

func actualReq(projectID, hours string) ActualRequest {
	return ActualRequest{ProjectID: projectID, Hours: hours, Content: "work"}
}

func projectAggregate(t *testing.T, db *gorm.DB, id uuid.UUID) model.Project {
	var project model.Project
	require.NoError(t, db.First(&project, "id = ?", id).Error)
	return project
}

// --- AffectedProjects (pure) ---

func TestAffectedProjects_UnionOfSnapshots(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	agg := &laborAggregator{}

	prev := []model.ScheduleActual{
		{ProjectID: &a, Hours: decimal.NewFromInt(3)},
		{ProjectID: nil, Hours: decimal.NewFromInt(1)}, // internal work, no project
	}
	next := []model.ScheduleActual{
		{ProjectID: &b, Hours: decimal.NewFromInt(3)},
		{ProjectID: &a, Hours: decimal.NewFromInt(2)},
	}

	affected := agg.AffectedProjects(prev, next)
	require.Len(t, affected, 2, "reassignment touches both the old and the new project")
	assert.Contains(t, affected, a)
	assert.Contains(t, affected, b)
	assert.True(t, affected[0].String() < affected[1].String(), "deterministic order")
}

func TestAffectedProjects_Empty(t *testing.T) {
	agg := &laborAggregator{}
	assert.Empty(t, agg.AffectedProjects(nil, nil))

	noProject := []model.ScheduleActual{{Hours: decimal.NewFromInt(8)}}
	assert.Empty(t, agg.AffectedProjects(noProject, noProject))
}

// --- Aggregate lifecycle (sqlite) ---

func TestScheduleCreate_PopulatesAggregate(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newTestScheduleService(db)
	project := seedProject(t, db, "P-001", nil) // default rate 5000

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		UserID:   uuid.NewString(),
		WorkDate: "2025-06-02",
		Actuals:  []ActualRequest{actualReq(project.ID.String(), "8")},
	})
	require.NoError(t, err)

	got := projectAggregate(t, db, project.ID)
	assert.True(t, got.TotalLaborHours.Equal(decimal.NewFromInt(8)), "hours = %s", got.TotalLaborHours)
	assert.True(t, got.TotalLaborCost.Equal(decimal.NewFromInt(40_000)), "cost = %s", got.TotalLaborCost)
	assert.NotNil(t, got.LastCalculatedAt)
}

func TestScheduleUpdate_ReplacesActualsAndAggregate(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newTestScheduleService(db)
	project := seedProject(t, db, "P-001", nil)

	created, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		UserID:   uuid.NewString(),
		WorkDate: "2025-06-02",
		Actuals:  []ActualRequest{actualReq(project.ID.String(), "10")},
	})
	require.NoError(t, err)
	assert.True(t, projectAggregate(t, db, project.ID).TotalLaborCost.Equal(decimal.NewFromInt(50_000)))

	updated, err := svc.UpdateSchedule(context.Background(), created.ID, UpdateScheduleRequest{
		WorkDate: "2025-06-02",
		Actuals: []ActualRequest{
			actualReq(project.ID.String(), "10"),
			actualReq(project.ID.String(), "5"),
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Actuals, 2, "full replace persists exactly the submitted list")

	got := projectAggregate(t, db, project.ID)
	assert.True(t, got.TotalLaborHours.Equal(decimal.NewFromInt(15)), "hours = %s", got.TotalLaborHours)
	assert.True(t, got.TotalLaborCost.Equal(decimal.NewFromInt(75_000)), "cost = %s", got.TotalLaborCost)
}

func TestScheduleDelete_ZeroesAggregate(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newTestScheduleService(db)
	project := seedProject(t, db, "P-001", nil)

	created, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		UserID:   uuid.NewString(),
		WorkDate: "2025-06-02",
		Actuals:  []ActualRequest{actualReq(project.ID.String(), "8")},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSchedule(context.Background(), created.ID))

	got := projectAggregate(t, db, project.ID)
	assert.True(t, got.TotalLaborHours.IsZero())
	assert.True(t, got.TotalLaborCost.IsZero())

	var actualCount int64
	require.NoError(t, db.Model(&model.ScheduleActual{}).Count(&actualCount).Error)
	assert.Zero(t, actualCount, "actuals go with the schedule")
}

func TestScheduleUpdate_ReassignmentMovesCost(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newTestScheduleService(db)
	projectA := seedProject(t, db, "P-001", nil)
	projectB := seedProject(t, db, "P-002", nil)

	created, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		UserID:   uuid.NewString(),
		WorkDate: "2025-06-02",
		Actuals:  []ActualRequest{actualReq(projectA.ID.String(), "6")},
	})
	require.NoError(t, err)

	_, err = svc.UpdateSchedule(context.Background(), created.ID, UpdateScheduleRequest{
		WorkDate: "2025-06-02",
		Actuals:  []ActualRequest{actualReq(projectB.ID.String(), "6")},
	})
	require.NoError(t, err)

	gotA := projectAggregate(t, db, projectA.ID)
	gotB := projectAggregate(t, db, projectB.ID)
	assert.True(t, gotA.TotalLaborCost.IsZero(), "old project loses the cost")
	assert.True(t, gotB.TotalLaborCost.Equal(decimal.NewFromInt(30_000)), "new project gains it")
}

func TestRecalculateProject_RateChangeRescalesCost(t *testing.T) {
	db := setupServiceDB(t)
	svc, aggregator, _ := newTestScheduleService(db)
	project := seedProject(t, db, "P-001", nil)

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		UserID:   uuid.NewString(),
		WorkDate: "2025-06-02",
		Actuals:  []ActualRequest{actualReq(project.ID.String(), "10")},
	})
	require.NoError(t, err)
	assert.True(t, projectAggregate(t, db, project.ID).TotalLaborCost.Equal(decimal.NewFromInt(50_000)))

	newRate := decimal.NewFromInt(6_000)
	require.NoError(t, db.Model(&model.Project{}).Where("id = ?", project.ID).Update("hourly_rate", newRate).Error)

	require.NoError(t, aggregator.RecalculateProject(context.Background(), project.ID))

	got := projectAggregate(t, db, project.ID)
	assert.True(t, got.TotalLaborHours.Equal(decimal.NewFromInt(10)), "hours are untouched by a rate change")
	assert.True(t, got.TotalLaborCost.Equal(decimal.NewFromInt(60_000)), "cost = %s", got.TotalLaborCost)
}

func TestScheduleCreate_UnknownProjectRollsBack(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newTestScheduleService(db)

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		UserID:   uuid.NewString(),
		WorkDate: "2025-06-02",
		Actuals:  []ActualRequest{actualReq(uuid.NewString(), "8")},
	})
	require.ErrorIs(t, err, ErrProjectNotFound)

	var scheduleCount int64
	require.NoError(t, db.Model(&model.Schedule{}).Count(&scheduleCount).Error)
	assert.Zero(t, scheduleCount, "the schedule write rolls back with the failed reconciliation")
}

func TestScheduleCreate_RejectsNegativeHours(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newTestScheduleService(db)
	project := seedProject(t, db, "P-001", nil)

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		UserID:   uuid.NewString(),
		WorkDate: "2025-06-02",
		Actuals:  []ActualRequest{actualReq(project.ID.String(), "-1")},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}
