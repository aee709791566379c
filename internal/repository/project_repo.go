package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerFilter narrows the project set before profitability rows are computed.
// All conditions are ANDed; empty fields are skipped.
type LedgerFilter struct {
	ProjectType    string
	Statuses       []string
	DepartmentID   *uuid.UUID
	IssueDateFrom  *time.Time
	IssueDateUntil *time.Time
}

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	// FindByIDForUpdate locks the project row for the duration of the
	// surrounding transaction. Required for every aggregate recalculation so
	// two concurrent schedule edits against the same project serialize
	// instead of losing one update.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	UpdateLaborAggregate(ctx context.Context, id uuid.UUID, hours, cost decimal.Decimal, calculatedAt time.Time) error
	List(ctx context.Context, page, limit int) ([]model.Project, int64, error)
	ListForLedger(ctx context.Context, filter LedgerFilter) ([]model.Project, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Create(project).Error
}

func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := GetDB(ctx, r.db).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	db := GetDB(ctx, r.db)
	// sqlite (tests) serializes writers on its own and rejects FOR UPDATE.
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var project model.Project
	if err := db.First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Save(project).Error
}

// UpdateLaborAggregate writes the three cached aggregate columns together.
// They are never written individually anywhere else.
func (r *projectRepository) UpdateLaborAggregate(ctx context.Context, id uuid.UUID, hours, cost decimal.Decimal, calculatedAt time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_labor_hours":  hours,
		"total_labor_cost":   cost,
		"last_calculated_at": calculatedAt,
	}).Error
}

func (r *projectRepository) List(ctx context.Context, page, limit int) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Project{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Department").Order("project_number desc").Offset(offset).Limit(limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *projectRepository) ListForLedger(ctx context.Context, filter LedgerFilter) ([]model.Project, error) {
	query := GetDB(ctx, r.db).Model(&model.Project{}).Preload("Department")

	if filter.ProjectType != "" {
		query = query.Where("project_type = ?", filter.ProjectType)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.DepartmentID != nil {
		query = query.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.IssueDateFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssueDateFrom)
	}
	if filter.IssueDateUntil != nil {
		query = query.Where("issue_date <= ?", *filter.IssueDateUntil)
	}

	var projects []model.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}
