package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/finance"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type EVMPointResponse struct {
	Date string `json:"date"`
	PV   string `json:"pv"`
	EV   string `json:"ev"`
	AC   string `json:"ac"`
}

type EVMResponse struct {
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	AsOf        string  `json:"as_of"`
	PV          string  `json:"pv"`
	EV          string  `json:"ev"`
	AC          string  `json:"ac"`
	SV          string  `json:"sv"`
	CV          string  `json:"cv"`
	SPI         *string `json:"spi"` // nil when PV is 0
	CPI         *string `json:"cpi"` // nil when AC is 0
	ETC         string  `json:"etc"`
	EAC         string  `json:"eac"`

	Series []EVMPointResponse `json:"series"`
	// Past samples project today's labor aggregate backwards; the series is
	// an approximation, not reconstructed history.
	SeriesApproximate bool `json:"series_approximate"`
}

// --- Interface ---

// EVMService is a read-only consumer of the labor aggregate: it maps a project
// onto the pure earned-value calculator and never writes anything.
type EVMService interface {
	GetProjectEVM(ctx context.Context, projectID string, asOf time.Time) (EVMResponse, error)
}

type evmService struct {
	projectRepo repository.ProjectRepository
}

func NewEVMService(projectRepo repository.ProjectRepository) EVMService {
	return &evmService{projectRepo: projectRepo}
}

// --- Implementation ---

func (s *evmService) GetProjectEVM(ctx context.Context, projectID string, asOf time.Time) (EVMResponse, error) {
	id, err := uuid.Parse(projectID)
	if err != nil {
		return EVMResponse{}, fmt.Errorf("%w: invalid project id: %v", ErrInvalidInput, err)
	}

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EVMResponse{}, ErrProjectNotFound
		}
		return EVMResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}

	snapshot := finance.ComputeEVM(finance.EVMInput{
		Budget:          project.Budget,
		PlannedHours:    project.PlannedHours,
		PlannedStart:    project.PlannedStart,
		PlannedEnd:      project.PlannedEnd,
		TotalLaborHours: project.TotalLaborHours,
		TotalLaborCost:  project.TotalLaborCost,
	}, asOf)

	resp := EVMResponse{
		ProjectID:         project.ID.String(),
		ProjectName:       project.ProjectName,
		AsOf:              snapshot.AsOf.Format("2006-01-02"),
		PV:                snapshot.PV.StringFixed(0),
		EV:                snapshot.EV.StringFixed(0),
		AC:                snapshot.AC.StringFixed(0),
		SV:                snapshot.SV.StringFixed(0),
		CV:                snapshot.CV.StringFixed(0),
		ETC:               snapshot.ETC.StringFixed(0),
		EAC:               snapshot.EAC.StringFixed(0),
		SeriesApproximate: snapshot.SeriesApproximate,
	}
	if snapshot.SPI != nil {
		v := snapshot.SPI.StringFixed(2)
		resp.SPI = &v
	}
	if snapshot.CPI != nil {
		v := snapshot.CPI.StringFixed(2)
		resp.CPI = &v
	}

	resp.Series = make([]EVMPointResponse, 0, len(snapshot.Series))
	for _, point := range snapshot.Series {
		resp.Series = append(resp.Series, EVMPointResponse{
			Date: point.Date.Format("2006-01-02"),
			PV:   point.PV.StringFixed(0),
			EV:   point.EV.StringFixed(0),
			AC:   point.AC.StringFixed(0),
		})
	}

	return resp, nil
}
