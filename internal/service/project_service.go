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

type CreateProjectRequest struct {
	ProjectNumber    string `json:"project_number" binding:"required"`
	ProjectName      string `json:"project_name" binding:"required"`
	ProjectType      string `json:"project_type" binding:"required,oneof=DEVELOPMENT MAINTENANCE LICENSE OTHER"`
	Status           string `json:"status" binding:"omitempty,oneof=PROSPECT ORDERED IN_PROGRESS COMPLETED LOST"`
	DepartmentID     string `json:"department_id"`
	IssueDate        string `json:"issue_date"` // YYYY-MM-DD
	OrderAmount      string `json:"order_amount"`
	OutsourcingCost  string `json:"outsourcing_cost"`
	ServerDomainCost string `json:"server_domain_cost"`
	Budget           string `json:"budget"`
	PlannedHours     string `json:"planned_hours"`
	PlannedStart     string `json:"planned_start"`
	PlannedEnd       string `json:"planned_end"`
	HourlyRate       string `json:"hourly_rate"` // empty = company default
}

type UpdateProjectRequest struct {
	ProjectName      string `json:"project_name" binding:"required"`
	ProjectType      string `json:"project_type" binding:"required,oneof=DEVELOPMENT MAINTENANCE LICENSE OTHER"`
	Status           string `json:"status" binding:"required,oneof=PROSPECT ORDERED IN_PROGRESS COMPLETED LOST"`
	DepartmentID     string `json:"department_id"`
	IssueDate        string `json:"issue_date"`
	OrderAmount      string `json:"order_amount"`
	OutsourcingCost  string `json:"outsourcing_cost"`
	ServerDomainCost string `json:"server_domain_cost"`
	Budget           string `json:"budget"`
	PlannedHours     string `json:"planned_hours"`
	PlannedStart     string `json:"planned_start"`
	PlannedEnd       string `json:"planned_end"`
	HourlyRate       string `json:"hourly_rate"`
}

type ProjectResponse struct {
	ID               string  `json:"id"`
	ProjectNumber    string  `json:"project_number"`
	ProjectName      string  `json:"project_name"`
	ProjectType      string  `json:"project_type"`
	Status           string  `json:"status"`
	DepartmentID     *string `json:"department_id"`
	DepartmentName   string  `json:"department_name,omitempty"`
	IssueDate        *string `json:"issue_date"`
	OrderAmount      string  `json:"order_amount"`
	OutsourcingCost  string  `json:"outsourcing_cost"`
	ServerDomainCost string  `json:"server_domain_cost"`
	Budget           string  `json:"budget"`
	PlannedHours     string  `json:"planned_hours"`
	PlannedStart     *string `json:"planned_start"`
	PlannedEnd       *string `json:"planned_end"`
	HourlyRate       string  `json:"hourly_rate"`
	TotalLaborHours  string  `json:"total_labor_hours"`
	TotalLaborCost   string  `json:"total_labor_cost"`
	LastCalculatedAt *string `json:"last_calculated_at"`
	CreatedAt        string  `json:"created_at"`
}

// --- Interface ---

type ProjectService interface {
	CreateProject(ctx context.Context, req CreateProjectRequest, userID string) (ProjectResponse, error)
	UpdateProject(ctx context.Context, id string, req UpdateProjectRequest, userID string) (ProjectResponse, error)
	GetProject(ctx context.Context, id string) (ProjectResponse, error)
	ListProjects(ctx context.Context, page, limit int) ([]ProjectResponse, int64, error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
	auditRepo   repository.AuditRepository
	aggregator  LaborAggregator
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	auditRepo repository.AuditRepository,
	aggregator LaborAggregator,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		auditRepo:   auditRepo,
		aggregator:  aggregator,
		txManager:   txManager,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *projectService) CreateProject(ctx context.Context, req CreateProjectRequest, userID string) (ProjectResponse, error) {
	project := model.Project{
		ProjectNumber: req.ProjectNumber,
		ProjectName:   req.ProjectName,
		ProjectType:   req.ProjectType,
		Status:        model.ProjectStatusProspect,
	}
	if req.Status != "" {
		project.Status = req.Status
	}

	if err := applyProjectFields(&project, req.DepartmentID, req.IssueDate, req.OrderAmount, req.OutsourcingCost,
		req.ServerDomainCost, req.Budget, req.PlannedHours, req.PlannedStart, req.PlannedEnd, req.HourlyRate); err != nil {
		return ProjectResponse{}, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projectRepo.Create(txCtx, &project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		s.writeAudit(txCtx, userID, model.ActionCreateProject, project.ID.String(), project.ProjectName, req)
		return nil
	})
	if err != nil {
		return ProjectResponse{}, err
	}

	return toProjectResponse(project), nil
}

func (s *projectService) UpdateProject(ctx context.Context, id string, req UpdateProjectRequest, userID string) (ProjectResponse, error) {
	projectID, err := uuid.Parse(id)
	if err != nil {
		return ProjectResponse{}, fmt.Errorf("%w: invalid project id: %v", ErrInvalidInput, err)
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProjectResponse{}, ErrProjectNotFound
		}
		return ProjectResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}

	previousRate := project.EffectiveHourlyRate()

	project.ProjectName = req.ProjectName
	project.ProjectType = req.ProjectType
	project.Status = req.Status
	if err := applyProjectFields(project, req.DepartmentID, req.IssueDate, req.OrderAmount, req.OutsourcingCost,
		req.ServerDomainCost, req.Budget, req.PlannedHours, req.PlannedStart, req.PlannedEnd, req.HourlyRate); err != nil {
		return ProjectResponse{}, err
	}

	rateChanged := !project.EffectiveHourlyRate().Equal(previousRate)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projectRepo.Update(txCtx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		// A rate change rescales total_labor_cost over unchanged hours, in
		// the same transaction as the rate write.
		if rateChanged {
			if err := s.aggregator.RecalculateProject(txCtx, projectID); err != nil {
				return err
			}
		}

		s.writeAudit(txCtx, userID, model.ActionUpdateProject, project.ID.String(), project.ProjectName, req)
		return nil
	})
	if err != nil {
		return ProjectResponse{}, err
	}

	if rateChanged {
		s.broadcastAggregateUpdated(projectID)
	}

	reloaded, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return ProjectResponse{}, fmt.Errorf("failed to reload project: %w", err)
	}
	return toProjectResponse(*reloaded), nil
}

func (s *projectService) GetProject(ctx context.Context, id string) (ProjectResponse, error) {
	projectID, err := uuid.Parse(id)
	if err != nil {
		return ProjectResponse{}, fmt.Errorf("%w: invalid project id: %v", ErrInvalidInput, err)
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProjectResponse{}, ErrProjectNotFound
		}
		return ProjectResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}
	return toProjectResponse(*project), nil
}

func (s *projectService) ListProjects(ctx context.Context, page, limit int) ([]ProjectResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	projects, total, err := s.projectRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch projects: %w", err)
	}

	result := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		result = append(result, toProjectResponse(project))
	}
	return result, total, nil
}

// --- Helpers ---

func applyProjectFields(project *model.Project, departmentID, issueDate, orderAmount, outsourcingCost,
	serverDomainCost, budget, plannedHours, plannedStart, plannedEnd, hourlyRate string) error {

	if departmentID != "" {
		parsed, err := uuid.Parse(departmentID)
		if err != nil {
			return fmt.Errorf("%w: invalid department_id: %v", ErrInvalidInput, err)
		}
		project.DepartmentID = &parsed
	} else {
		project.DepartmentID = nil
	}

	var err error
	if project.IssueDate, err = parseOptionalDate(issueDate, "issue_date"); err != nil {
		return err
	}
	if project.PlannedStart, err = parseOptionalDate(plannedStart, "planned_start"); err != nil {
		return err
	}
	if project.PlannedEnd, err = parseOptionalDate(plannedEnd, "planned_end"); err != nil {
		return err
	}

	if project.OrderAmount, err = parseOptionalDecimal(orderAmount, "order_amount"); err != nil {
		return err
	}
	if project.OutsourcingCost, err = parseOptionalDecimal(outsourcingCost, "outsourcing_cost"); err != nil {
		return err
	}
	if project.ServerDomainCost, err = parseOptionalDecimal(serverDomainCost, "server_domain_cost"); err != nil {
		return err
	}
	if project.Budget, err = parseOptionalDecimal(budget, "budget"); err != nil {
		return err
	}
	if project.PlannedHours, err = parseOptionalDecimal(plannedHours, "planned_hours"); err != nil {
		return err
	}

	if hourlyRate != "" {
		rate, err := decimal.NewFromString(hourlyRate)
		if err != nil {
			return fmt.Errorf("%w: invalid hourly_rate: %v", ErrInvalidInput, err)
		}
		project.HourlyRate = &rate
	} else {
		project.HourlyRate = nil
	}

	return nil
}

func parseOptionalDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s (expected YYYY-MM-DD): %v", ErrInvalidInput, field, err)
	}
	return &parsed, nil
}

func parseOptionalDecimal(value, field string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid %s: %v", ErrInvalidInput, field, err)
	}
	return parsed, nil
}

func (s *projectService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log — don't fail the operation if logging fails
	_ = s.auditRepo.Log(ctx, entry)
}

func (s *projectService) broadcastAggregateUpdated(projectID uuid.UUID) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(ws.Event{
		Event: "labor_aggregate.updated",
		Data:  map[string]interface{}{"project_ids": []string{projectID.String()}},
	})
	s.hub.Broadcast <- payload
}

func toProjectResponse(project model.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:               project.ID.String(),
		ProjectNumber:    project.ProjectNumber,
		ProjectName:      project.ProjectName,
		ProjectType:      project.ProjectType,
		Status:           project.Status,
		OrderAmount:      project.OrderAmount.StringFixed(0),
		OutsourcingCost:  project.OutsourcingCost.StringFixed(0),
		ServerDomainCost: project.ServerDomainCost.StringFixed(0),
		Budget:           project.Budget.StringFixed(0),
		PlannedHours:     project.PlannedHours.StringFixed(2),
		HourlyRate:       project.EffectiveHourlyRate().StringFixed(0),
		TotalLaborHours:  project.TotalLaborHours.StringFixed(2),
		TotalLaborCost:   project.TotalLaborCost.StringFixed(0),
		CreatedAt:        project.CreatedAt.Format(time.RFC3339),
	}
	if project.DepartmentID != nil {
		id := project.DepartmentID.String()
		resp.DepartmentID = &id
	}
	if project.Department != nil {
		resp.DepartmentName = project.Department.Name
	}
	if project.IssueDate != nil {
		d := project.IssueDate.Format("2006-01-02")
		resp.IssueDate = &d
	}
	if project.PlannedStart != nil {
		d := project.PlannedStart.Format("2006-01-02")
		resp.PlannedStart = &d
	}
	if project.PlannedEnd != nil {
		d := project.PlannedEnd.Format("2006-01-02")
		resp.PlannedEnd = &d
	}
	if project.LastCalculatedAt != nil {
		t := project.LastCalculatedAt.Format(time.RFC3339)
		resp.LastCalculatedAt = &t
	}
	return resp
}
