package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/finance"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLedgerProject(t *testing.T, db *gorm.DB, number string, mutate func(*model.Project)) model.Project {
	project := model.Project{
		ProjectNumber: number,
		ProjectName:   "Project " + number,
		ProjectType:   model.ProjectTypeDevelopment,
		Status:        model.ProjectStatusInProgress,
	}
	if mutate != nil {
		mutate(&project)
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

func TestListLedger_ComputesProfitColumns(t *testing.T) {
	db := setupServiceDB(t)
	seedLedgerProject(t, db, "P-001", func(p *model.Project) {
		p.OrderAmount = decimal.NewFromInt(1_000_000)
		p.OutsourcingCost = decimal.NewFromInt(200_000)
		p.ServerDomainCost = decimal.NewFromInt(50_000)
		p.TotalLaborCost = decimal.NewFromInt(400_000)
	})

	svc := NewLedgerService(repository.NewProjectRepository(db))
	page, err := svc.ListLedger(context.Background(), LedgerQuery{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)

	row := page.Rows[0]
	assert.Equal(t, "350000", row.GrossProfit)
	assert.Equal(t, "35.0", row.GrossProfitRate)
	assert.Equal(t, finance.BandHealthy, row.ProfitBand)
}

func TestListLedger_ZeroOrderAmountReportsFlatRate(t *testing.T) {
	db := setupServiceDB(t)
	seedLedgerProject(t, db, "P-001", func(p *model.Project) {
		p.Status = model.ProjectStatusProspect
		p.TotalLaborCost = decimal.NewFromInt(120_000)
	})

	svc := NewLedgerService(repository.NewProjectRepository(db))
	page, err := svc.ListLedger(context.Background(), LedgerQuery{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)

	row := page.Rows[0]
	assert.Equal(t, "-120000", row.GrossProfit)
	assert.Equal(t, "0.0", row.GrossProfitRate)
	assert.Equal(t, finance.BandLow, row.ProfitBand)
}

func TestListLedger_DefaultStatusHidesCompleted(t *testing.T) {
	db := setupServiceDB(t)
	seedLedgerProject(t, db, "P-001", nil)
	seedLedgerProject(t, db, "P-002", func(p *model.Project) {
		p.Status = model.ProjectStatusCompleted
	})

	svc := NewLedgerService(repository.NewProjectRepository(db))

	page, err := svc.ListLedger(context.Background(), LedgerQuery{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "P-001", page.Rows[0].ProjectNumber)

	// Asking for COMPLETED explicitly brings it back.
	page, err = svc.ListLedger(context.Background(), LedgerQuery{Statuses: []string{model.ProjectStatusCompleted}})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "P-002", page.Rows[0].ProjectNumber)
}

func TestListLedger_FiltersByTypeAndIssueDate(t *testing.T) {
	db := setupServiceDB(t)
	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	june := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	seedLedgerProject(t, db, "P-001", func(p *model.Project) {
		p.IssueDate = &march
	})
	seedLedgerProject(t, db, "P-002", func(p *model.Project) {
		p.ProjectType = model.ProjectTypeMaintenance
		p.IssueDate = &june
	})

	svc := NewLedgerService(repository.NewProjectRepository(db))

	page, err := svc.ListLedger(context.Background(), LedgerQuery{ProjectType: model.ProjectTypeMaintenance})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "P-002", page.Rows[0].ProjectNumber)

	page, err = svc.ListLedger(context.Background(), LedgerQuery{IssueDateFrom: "2025-04-01"})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "P-002", page.Rows[0].ProjectNumber)

	page, err = svc.ListLedger(context.Background(), LedgerQuery{IssueDateUntil: "2025-04-01"})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "P-001", page.Rows[0].ProjectNumber)
}

func TestListLedger_SortAndPaginateInMemory(t *testing.T) {
	db := setupServiceDB(t)
	amounts := []int64{300, 100, 200}
	for i, amount := range amounts {
		seedLedgerProject(t, db, fmt.Sprintf("P-%03d", i+1), func(p *model.Project) {
			p.OrderAmount = decimal.NewFromInt(amount)
		})
	}

	svc := NewLedgerService(repository.NewProjectRepository(db))

	page, err := svc.ListLedger(context.Background(), LedgerQuery{SortKey: SortByOrderAmount, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "100", page.Rows[0].OrderAmount)
	assert.Equal(t, "200", page.Rows[1].OrderAmount)

	page, err = svc.ListLedger(context.Background(), LedgerQuery{SortKey: SortByOrderAmount, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "300", page.Rows[0].OrderAmount)

	// Descending reverses the order.
	page, err = svc.ListLedger(context.Background(), LedgerQuery{SortKey: SortByOrderAmount, SortDesc: true, Page: 1, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Rows, 3)
	assert.Equal(t, "300", page.Rows[0].OrderAmount)
	assert.Equal(t, "100", page.Rows[2].OrderAmount)
}

// --- Pure sorting/paging helpers ---

func TestSortLedgerRows_StableTieBreak(t *testing.T) {
	rows := make([]ledgerRow, 0, 4)
	for i := 0; i < 4; i++ {
		rows = append(rows, ledgerRow{
			project: model.Project{
				ID:          uuid.New(),
				OrderAmount: decimal.NewFromInt(100), // all tied
			},
		})
	}

	sortLedgerRows(rows, SortByOrderAmount, false)
	asc := make([]string, 0, len(rows))
	for _, r := range rows {
		asc = append(asc, r.project.ID.String())
	}

	sortLedgerRows(rows, SortByOrderAmount, true)
	for i, r := range rows {
		assert.Equal(t, asc[i], r.project.ID.String(), "tie-break stays ascending under desc sort")
	}
}

func TestResolveSort(t *testing.T) {
	key, desc := ResolveSort(SortByOrderAmount, true, SortByOrderAmount)
	assert.Equal(t, SortByOrderAmount, key)
	assert.False(t, desc, "same column flips direction")

	key, desc = ResolveSort(SortByOrderAmount, false, SortByOrderAmount)
	assert.True(t, desc)

	key, desc = ResolveSort(SortByOrderAmount, false, SortByGrossProfit)
	assert.Equal(t, SortByGrossProfit, key)
	assert.True(t, desc, "new column starts descending")
}

func TestPageAfterChange(t *testing.T) {
	prev := LedgerQuery{ProjectType: model.ProjectTypeDevelopment, SortKey: SortByIssueDate, Page: 3}

	same := prev
	same.Page = 4
	assert.Equal(t, 4, PageAfterChange(prev, same), "plain page move keeps the requested page")

	filterChanged := same
	filterChanged.ProjectType = model.ProjectTypeMaintenance
	assert.Equal(t, 1, PageAfterChange(prev, filterChanged), "filter change resets to page 1")

	sortChanged := same
	sortChanged.SortDesc = true
	assert.Equal(t, 1, PageAfterChange(prev, sortChanged), "sort change resets to page 1")

	statusChanged := same
	statusChanged.Statuses = []string{model.ProjectStatusOrdered}
	assert.Equal(t, 1, PageAfterChange(prev, statusChanged))
}
