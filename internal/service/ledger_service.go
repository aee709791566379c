package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"backend/internal/finance"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// LedgerQuery is the filter/sort/page state of a performance ledger request.
type LedgerQuery struct {
	ProjectType    string
	Statuses       []string // empty = every status except COMPLETED
	DepartmentID   string
	IssueDateFrom  string // YYYY-MM-DD
	IssueDateUntil string
	SortKey        string // see ledgerSortKeys
	SortDesc       bool
	Page           int
	Limit          int
}

// Sortable columns of the ledger.
const (
	SortByProjectNumber   = "projectNumber"
	SortByProjectName     = "projectName"
	SortByIssueDate       = "issueDate"
	SortByOrderAmount     = "orderAmount"
	SortByLaborCost       = "laborCost"
	SortByGrossProfit     = "grossProfit"
	SortByGrossProfitRate = "grossProfitRate"
)

type LedgerRowResponse struct {
	ProjectID        string             `json:"project_id"`
	ProjectNumber    string             `json:"project_number"`
	ProjectName      string             `json:"project_name"`
	ProjectType      string             `json:"project_type"`
	Status           string             `json:"status"`
	DepartmentName   string             `json:"department_name,omitempty"`
	IssueDate        *string            `json:"issue_date"`
	OrderAmount      string             `json:"order_amount"`
	OutsourcingCost  string             `json:"outsourcing_cost"`
	ServerDomainCost string             `json:"server_domain_cost"`
	LaborHours       string             `json:"labor_hours"`
	LaborCost        string             `json:"labor_cost"`
	GrossProfit      string             `json:"gross_profit"`
	GrossProfitRate  string             `json:"gross_profit_rate"`
	ProfitBand       finance.ProfitBand `json:"profit_band"`
}

type LedgerPageResponse struct {
	Rows       []LedgerRowResponse `json:"rows"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
}

// --- Interface ---

type LedgerService interface {
	ListLedger(ctx context.Context, query LedgerQuery) (LedgerPageResponse, error)
}

type ledgerService struct {
	projectRepo repository.ProjectRepository
}

func NewLedgerService(projectRepo repository.ProjectRepository) LedgerService {
	return &ledgerService{projectRepo: projectRepo}
}

// ledgerRow keeps decimals for sorting; the string DTO is built afterwards.
type ledgerRow struct {
	project         model.Project
	grossProfit     decimal.Decimal
	grossProfitRate decimal.Decimal
}

// --- Implementation ---

func (s *ledgerService) ListLedger(ctx context.Context, query LedgerQuery) (LedgerPageResponse, error) {
	filter, err := buildLedgerFilter(query)
	if err != nil {
		return LedgerPageResponse{}, err
	}

	projects, err := s.projectRepo.ListForLedger(ctx, filter)
	if err != nil {
		return LedgerPageResponse{}, fmt.Errorf("failed to fetch ledger projects: %w", err)
	}

	rows := buildLedgerRows(projects)
	// Sort the whole filtered set before slicing a page: sort keys reflect
	// every matching project, not just the visible ones.
	sortLedgerRows(rows, query.SortKey, query.SortDesc)

	page, limit := pagination.Normalize(query.Page, query.Limit)
	total := len(rows)
	start, end, totalPages := pagination.Window(page, limit, total)

	result := make([]LedgerRowResponse, 0, end-start)
	for _, row := range rows[start:end] {
		result = append(result, toLedgerRowResponse(row))
	}

	return LedgerPageResponse{
		Rows:       result,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// --- Pure helpers (tested without a database) ---

// DefaultLedgerStatuses is the status filter applied when the caller selects
// none: everything still moving, completed projects hidden.
func DefaultLedgerStatuses() []string {
	return []string{
		model.ProjectStatusProspect,
		model.ProjectStatusOrdered,
		model.ProjectStatusInProgress,
		model.ProjectStatusLost,
	}
}

func buildLedgerFilter(query LedgerQuery) (repository.LedgerFilter, error) {
	filter := repository.LedgerFilter{
		ProjectType: query.ProjectType,
		Statuses:    query.Statuses,
	}
	if len(filter.Statuses) == 0 {
		filter.Statuses = DefaultLedgerStatuses()
	}

	if query.DepartmentID != "" {
		id, err := uuid.Parse(query.DepartmentID)
		if err != nil {
			return repository.LedgerFilter{}, fmt.Errorf("%w: invalid department_id: %v", ErrInvalidInput, err)
		}
		filter.DepartmentID = &id
	}
	if query.IssueDateFrom != "" {
		from, err := time.Parse("2006-01-02", query.IssueDateFrom)
		if err != nil {
			return repository.LedgerFilter{}, fmt.Errorf("%w: invalid issue_date_from: %v", ErrInvalidInput, err)
		}
		filter.IssueDateFrom = &from
	}
	if query.IssueDateUntil != "" {
		until, err := time.Parse("2006-01-02", query.IssueDateUntil)
		if err != nil {
			return repository.LedgerFilter{}, fmt.Errorf("%w: invalid issue_date_until: %v", ErrInvalidInput, err)
		}
		filter.IssueDateUntil = &until
	}

	return filter, nil
}

func buildLedgerRows(projects []model.Project) []ledgerRow {
	rows := make([]ledgerRow, 0, len(projects))
	for _, project := range projects {
		grossProfit := finance.GrossProfit(project.OrderAmount, project.OutsourcingCost, project.ServerDomainCost, project.TotalLaborCost)
		rows = append(rows, ledgerRow{
			project:         project,
			grossProfit:     grossProfit,
			grossProfitRate: finance.GrossProfitRate(grossProfit, project.OrderAmount),
		})
	}
	return rows
}

// sortLedgerRows orders the full filtered set by the requested key with a
// stable projectID tie-break, so pagination stays deterministic across pages
// even when many rows share a sort value.
func sortLedgerRows(rows []ledgerRow, sortKey string, desc bool) {
	less := lessFuncFor(sortKey)

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if desc {
			a, b = b, a
		}
		switch less(a, b) {
		case -1:
			return true
		case 1:
			return false
		}
		// Tie-break is always ascending by ID regardless of direction.
		return rows[i].project.ID.String() < rows[j].project.ID.String()
	})
}

// lessFuncFor returns a three-way comparator (-1, 0, 1) for the sort key.
// Unknown keys fall back to project number.
func lessFuncFor(sortKey string) func(a, b ledgerRow) int {
	switch sortKey {
	case SortByProjectName:
		return func(a, b ledgerRow) int {
			return compareStrings(a.project.ProjectName, b.project.ProjectName)
		}
	case SortByIssueDate:
		return func(a, b ledgerRow) int {
			return compareDates(a.project.IssueDate, b.project.IssueDate)
		}
	case SortByOrderAmount:
		return func(a, b ledgerRow) int { return a.project.OrderAmount.Cmp(b.project.OrderAmount) }
	case SortByLaborCost:
		return func(a, b ledgerRow) int { return a.project.TotalLaborCost.Cmp(b.project.TotalLaborCost) }
	case SortByGrossProfit:
		return func(a, b ledgerRow) int { return a.grossProfit.Cmp(b.grossProfit) }
	case SortByGrossProfitRate:
		return func(a, b ledgerRow) int { return a.grossProfitRate.Cmp(b.grossProfitRate) }
	default:
		return func(a, b ledgerRow) int {
			return compareStrings(a.project.ProjectNumber, b.project.ProjectNumber)
		}
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}

// ResolveSort implements the UI sorting contract: requesting the current sort
// column flips its direction; requesting a new column starts descending.
func ResolveSort(prevKey string, prevDesc bool, requestedKey string) (string, bool) {
	if requestedKey == prevKey {
		return requestedKey, !prevDesc
	}
	return requestedKey, true
}

// PageAfterChange resets pagination to the first page whenever any filter or
// sort parameter differs from the previous request; otherwise the requested
// page stands.
func PageAfterChange(prev, next LedgerQuery) int {
	if !sameFiltersAndSort(prev, next) {
		return 1
	}
	if next.Page <= 0 {
		return 1
	}
	return next.Page
}

func sameFiltersAndSort(a, b LedgerQuery) bool {
	if a.ProjectType != b.ProjectType ||
		a.DepartmentID != b.DepartmentID ||
		a.IssueDateFrom != b.IssueDateFrom ||
		a.IssueDateUntil != b.IssueDateUntil ||
		a.SortKey != b.SortKey ||
		a.SortDesc != b.SortDesc ||
		len(a.Statuses) != len(b.Statuses) {
		return false
	}
	for i := range a.Statuses {
		if a.Statuses[i] != b.Statuses[i] {
			return false
		}
	}
	return true
}

func toLedgerRowResponse(row ledgerRow) LedgerRowResponse {
	resp := LedgerRowResponse{
		ProjectID:        row.project.ID.String(),
		ProjectNumber:    row.project.ProjectNumber,
		ProjectName:      row.project.ProjectName,
		ProjectType:      row.project.ProjectType,
		Status:           row.project.Status,
		OrderAmount:      row.project.OrderAmount.StringFixed(0),
		OutsourcingCost:  row.project.OutsourcingCost.StringFixed(0),
		ServerDomainCost: row.project.ServerDomainCost.StringFixed(0),
		LaborHours:       row.project.TotalLaborHours.StringFixed(2),
		LaborCost:        row.project.TotalLaborCost.StringFixed(0),
		GrossProfit:      row.grossProfit.StringFixed(0),
		GrossProfitRate:  row.grossProfitRate.StringFixed(1),
		ProfitBand:       finance.BandFor(row.grossProfitRate),
	}
	if row.project.Department != nil {
		resp.DepartmentName = row.project.Department.Name
	}
	if row.project.IssueDate != nil {
		d := row.project.IssueDate.Format("2006-01-02")
		resp.IssueDate = &d
	}
	return resp
}
