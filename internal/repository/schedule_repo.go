package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	FindByIDWithActuals(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
	Update(ctx context.Context, schedule *model.Schedule) error
	// ReplaceActuals implements the full-replace contract: the previous
	// actuals list is deleted and the submitted one inserted wholesale.
	ReplaceActuals(ctx context.Context, scheduleID uuid.UUID, actuals []model.ScheduleActual) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, userID *uuid.UUID, page, limit int) ([]model.Schedule, int64, error)
	// SumHoursByProject totals hours over every actual referencing the
	// project, across all schedules. This is the source of truth the cached
	// project aggregate is recomputed from.
	SumHoursByProject(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	return GetDB(ctx, r.db).Create(schedule).Error
}

func (r *scheduleRepository) FindByIDWithActuals(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	var schedule model.Schedule
	if err := GetDB(ctx, r.db).
		Preload("Actuals", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc") }).
		First(&schedule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *model.Schedule) error {
	return GetDB(ctx, r.db).Omit("Actuals").Save(schedule).Error
}

func (r *scheduleRepository) ReplaceActuals(ctx context.Context, scheduleID uuid.UUID, actuals []model.ScheduleActual) error {
	db := GetDB(ctx, r.db)

	if err := db.Where("schedule_id = ?", scheduleID).Delete(&model.ScheduleActual{}).Error; err != nil {
		return err
	}
	if len(actuals) == 0 {
		return nil
	}
	for i := range actuals {
		actuals[i].ID = uuid.Nil
		actuals[i].ScheduleID = scheduleID
	}
	return db.Create(&actuals).Error
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	// Delete children explicitly rather than relying on the FK cascade so the
	// behavior is identical on every backend the tests run against.
	if err := db.Where("schedule_id = ?", id).Delete(&model.ScheduleActual{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Schedule{}, "id = ?", id).Error
}

func (r *scheduleRepository) List(ctx context.Context, userID *uuid.UUID, page, limit int) ([]model.Schedule, int64, error) {
	var schedules []model.Schedule
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Schedule{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Actuals", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc") })
	if userID != nil {
		fetch = fetch.Where("user_id = ?", *userID)
	}
	if err := fetch.Order("work_date desc").Offset(offset).Limit(limit).Find(&schedules).Error; err != nil {
		return nil, 0, err
	}

	return schedules, total, nil
}

func (r *scheduleRepository) SumHoursByProject(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.ScheduleActual{}).
		Select("COALESCE(SUM(hours), 0) as total").
		Where("project_id = ?", projectID).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
