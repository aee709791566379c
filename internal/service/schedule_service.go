package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ActualRequest struct {
	ProjectID    string `json:"project_id"` // empty = internal/non-billable work
	Hours        string `json:"hours" binding:"required"`
	Content      string `json:"content"`
	Details      string `json:"details"`
	DisplayOrder int    `json:"display_order"`
}

type CreateScheduleRequest struct {
	UserID   string          `json:"user_id" binding:"required"`
	WorkDate string          `json:"work_date" binding:"required"` // YYYY-MM-DD
	Note     string          `json:"note"`
	Actuals  []ActualRequest `json:"actuals"`
}

// UpdateScheduleRequest carries the schedule's entire actuals list; the server
// replaces the stored list wholesale and lets the labor aggregator diff the
// two snapshots.
type UpdateScheduleRequest struct {
	WorkDate string          `json:"work_date" binding:"required"`
	Note     string          `json:"note"`
	Actuals  []ActualRequest `json:"actuals"`
}

type ActualResponse struct {
	ID           string  `json:"id"`
	ProjectID    *string `json:"project_id"`
	Hours        string  `json:"hours"`
	Content      string  `json:"content"`
	Details      string  `json:"details"`
	DisplayOrder int     `json:"display_order"`
}

type ScheduleResponse struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	WorkDate  string           `json:"work_date"`
	Note      string           `json:"note"`
	Actuals   []ActualResponse `json:"actuals"`
	CreatedAt string           `json:"created_at"`
}

// --- Interface ---

type ScheduleService interface {
	CreateSchedule(ctx context.Context, req CreateScheduleRequest) (ScheduleResponse, error)
	UpdateSchedule(ctx context.Context, id string, req UpdateScheduleRequest) (ScheduleResponse, error)
	DeleteSchedule(ctx context.Context, id string) error
	GetSchedule(ctx context.Context, id string) (ScheduleResponse, error)
	ListSchedules(ctx context.Context, userID string, page, limit int) ([]ScheduleResponse, int64, error)
}

type scheduleService struct {
	scheduleRepo repository.ScheduleRepository
	auditRepo    repository.AuditRepository
	aggregator   LaborAggregator
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewScheduleService(
	scheduleRepo repository.ScheduleRepository,
	auditRepo repository.AuditRepository,
	aggregator LaborAggregator,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) ScheduleService {
	return &scheduleService{
		scheduleRepo: scheduleRepo,
		auditRepo:    auditRepo,
		aggregator:   aggregator,
		txManager:    txManager,
		hub:          hub,
	}
}

// --- Implementation ---

func (s *scheduleService) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (ScheduleResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return ScheduleResponse{}, fmt.Errorf("%w: invalid user_id: %v", ErrInvalidInput, err)
	}
	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		return ScheduleResponse{}, fmt.Errorf("%w: invalid work_date (expected YYYY-MM-DD): %v", ErrInvalidInput, err)
	}
	actuals, err := parseActuals(req.Actuals)
	if err != nil {
		return ScheduleResponse{}, err
	}

	schedule := model.Schedule{
		UserID:   userID,
		WorkDate: workDate,
		Note:     req.Note,
		Actuals:  actuals,
	}

	var affected []uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.scheduleRepo.Create(txCtx, &schedule); err != nil {
			return fmt.Errorf("failed to create schedule: %w", err)
		}

		// Create = reconciliation from an empty previous snapshot.
		affected, err = s.aggregator.Reconcile(txCtx, nil, schedule.Actuals)
		if err != nil {
			return err
		}

		s.writeAudit(txCtx, model.ActionCreateSchedule, schedule.ID.String(), req.WorkDate, req)
		return nil
	})
	if err != nil {
		return ScheduleResponse{}, err
	}

	s.broadcastAggregateUpdated(affected)
	return toScheduleResponse(schedule), nil
}

func (s *scheduleService) UpdateSchedule(ctx context.Context, id string, req UpdateScheduleRequest) (ScheduleResponse, error) {
	scheduleID, err := uuid.Parse(id)
	if err != nil {
		return ScheduleResponse{}, fmt.Errorf("%w: invalid schedule id: %v", ErrInvalidInput, err)
	}

	existing, err := s.scheduleRepo.FindByIDWithActuals(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ScheduleResponse{}, ErrScheduleNotFound
		}
		return ScheduleResponse{}, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		return ScheduleResponse{}, fmt.Errorf("%w: invalid work_date (expected YYYY-MM-DD): %v", ErrInvalidInput, err)
	}
	newActuals, err := parseActuals(req.Actuals)
	if err != nil {
		return ScheduleResponse{}, err
	}

	prevActuals := existing.Actuals
	existing.WorkDate = workDate
	existing.Note = req.Note

	var affected []uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.scheduleRepo.Update(txCtx, existing); err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}
		if err := s.scheduleRepo.ReplaceActuals(txCtx, scheduleID, newActuals); err != nil {
			return fmt.Errorf("failed to replace actuals: %w", err)
		}

		affected, err = s.aggregator.Reconcile(txCtx, prevActuals, newActuals)
		if err != nil {
			return err
		}

		s.writeAudit(txCtx, model.ActionUpdateSchedule, scheduleID.String(), req.WorkDate, req)
		return nil
	})
	if err != nil {
		return ScheduleResponse{}, err
	}

	reloaded, err := s.scheduleRepo.FindByIDWithActuals(ctx, scheduleID)
	if err != nil {
		return ScheduleResponse{}, fmt.Errorf("failed to reload schedule: %w", err)
	}

	s.broadcastAggregateUpdated(affected)
	return toScheduleResponse(*reloaded), nil
}

func (s *scheduleService) DeleteSchedule(ctx context.Context, id string) error {
	scheduleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid schedule id: %v", ErrInvalidInput, err)
	}

	existing, err := s.scheduleRepo.FindByIDWithActuals(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleNotFound
		}
		return fmt.Errorf("failed to fetch schedule: %w", err)
	}

	var affected []uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.scheduleRepo.Delete(txCtx, scheduleID); err != nil {
			return fmt.Errorf("failed to delete schedule: %w", err)
		}

		// Delete = reconciliation toward an empty snapshot.
		affected, err = s.aggregator.Reconcile(txCtx, existing.Actuals, nil)
		if err != nil {
			return err
		}

		s.writeAudit(txCtx, model.ActionDeleteSchedule, scheduleID.String(), existing.WorkDate.Format("2006-01-02"), map[string]string{"deleted_id": id})
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcastAggregateUpdated(affected)
	return nil
}

func (s *scheduleService) GetSchedule(ctx context.Context, id string) (ScheduleResponse, error) {
	scheduleID, err := uuid.Parse(id)
	if err != nil {
		return ScheduleResponse{}, fmt.Errorf("%w: invalid schedule id: %v", ErrInvalidInput, err)
	}

	schedule, err := s.scheduleRepo.FindByIDWithActuals(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ScheduleResponse{}, ErrScheduleNotFound
		}
		return ScheduleResponse{}, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	return toScheduleResponse(*schedule), nil
}

func (s *scheduleService) ListSchedules(ctx context.Context, userID string, page, limit int) ([]ScheduleResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var userFilter *uuid.UUID
	if userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid user_id: %v", ErrInvalidInput, err)
		}
		userFilter = &parsed
	}

	schedules, total, err := s.scheduleRepo.List(ctx, userFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch schedules: %w", err)
	}

	result := make([]ScheduleResponse, 0, len(schedules))
	for _, schedule := range schedules {
		result = append(result, toScheduleResponse(schedule))
	}
	return result, total, nil
}

// --- Helpers ---

func parseActuals(reqs []ActualRequest) ([]model.ScheduleActual, error) {
	actuals := make([]model.ScheduleActual, 0, len(reqs))
	for i, req := range reqs {
		hours, err := decimal.NewFromString(req.Hours)
		if err != nil {
			return nil, fmt.Errorf("%w: actual %d: invalid hours: %v", ErrInvalidInput, i, err)
		}
		if hours.IsNegative() {
			return nil, fmt.Errorf("%w: actual %d: hours must not be negative", ErrInvalidInput, i)
		}

		actual := model.ScheduleActual{
			Hours:        hours,
			Content:      req.Content,
			Details:      req.Details,
			DisplayOrder: req.DisplayOrder,
		}
		if req.ProjectID != "" {
			projectID, err := uuid.Parse(req.ProjectID)
			if err != nil {
				return nil, fmt.Errorf("%w: actual %d: invalid project_id: %v", ErrInvalidInput, i, err)
			}
			actual.ProjectID = &projectID
		}
		actuals = append(actuals, actual)
	}
	return actuals, nil
}

func (s *scheduleService) writeAudit(ctx context.Context, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	// Best-effort audit log — don't fail the operation if logging fails
	_ = s.auditRepo.Log(ctx, &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	})
}

func (s *scheduleService) broadcastAggregateUpdated(projectIDs []uuid.UUID) {
	if s.hub == nil || len(projectIDs) == 0 {
		return
	}

	ids := make([]string, 0, len(projectIDs))
	for _, id := range projectIDs {
		ids = append(ids, id.String())
	}
	payload, _ := json.Marshal(ws.Event{
		Event: "labor_aggregate.updated",
		Data:  map[string]interface{}{"project_ids": ids},
	})
	s.hub.Broadcast <- payload
}

func toScheduleResponse(schedule model.Schedule) ScheduleResponse {
	actuals := make([]ActualResponse, 0, len(schedule.Actuals))
	for _, actual := range schedule.Actuals {
		resp := ActualResponse{
			ID:           actual.ID.String(),
			Hours:        actual.Hours.StringFixed(2),
			Content:      actual.Content,
			Details:      actual.Details,
			DisplayOrder: actual.DisplayOrder,
		}
		if actual.ProjectID != nil {
			id := actual.ProjectID.String()
			resp.ProjectID = &id
		}
		actuals = append(actuals, resp)
	}

	return ScheduleResponse{
		ID:        schedule.ID.String(),
		UserID:    schedule.UserID.String(),
		WorkDate:  schedule.WorkDate.Format("2006-01-02"),
		Note:      schedule.Note,
		Actuals:   actuals,
		CreatedAt: schedule.CreatedAt.Format(time.RFC3339),
	}
}
