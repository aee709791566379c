package handler

import (
	"net/http"
	"strconv"
	"strings"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PerformanceHandler struct {
	ledgerService service.LedgerService
}

func NewPerformanceHandler(ledgerService service.LedgerService) *PerformanceHandler {
	return &PerformanceHandler{ledgerService: ledgerService}
}

func (h *PerformanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	performance := router.Group("/api/performance")
	{
		performance.GET("", middleware.RequirePermission("performance.read"), h.ListLedger)
	}
}

// ListLedger returns per-project profitability rows
// @Summary      Performance ledger
// @Description  One profitability row per project: order amount, costs, cached labor aggregate, gross profit and its rate band. Filters are ANDed; completed projects are excluded unless a status filter names them. Passing prev_sort makes the server apply the UI sorting contract: same column flips direction, a new column starts descending, and any filter/sort change resets to page 1.
// @Tags         performance
// @Security     BearerAuth
// @Produce      json
// @Param        project_type     query     string  false  "Filter by project type"
// @Param        statuses         query     string  false  "Comma-separated status list (default: all except COMPLETED)"
// @Param        department_id    query     string  false  "Filter by department"
// @Param        issue_date_from  query     string  false  "Issue date lower bound (YYYY-MM-DD)"
// @Param        issue_date_until query     string  false  "Issue date upper bound (YYYY-MM-DD)"
// @Param        sort             query     string  false  "Sort key (projectNumber, projectName, issueDate, orderAmount, laborCost, grossProfit, grossProfitRate)"
// @Param        desc             query     bool    false  "Sort descending (default true)"
// @Param        prev_sort        query     string  false  "Previous sort key, enables toggle semantics"
// @Param        prev_desc        query     bool    false  "Previous sort direction"
// @Param        page             query     int     false  "Page number (default 1)"
// @Param        limit            query     int     false  "Items per page (default 20)"
// @Success      200              {object}  response.Response{data=service.LedgerPageResponse}
// @Failure      400              {object}  response.Response
// @Router       /api/performance [get]
func (h *PerformanceHandler) ListLedger(c *gin.Context) {
	params := pagination.Parse(c)

	query := service.LedgerQuery{
		ProjectType:    c.Query("project_type"),
		DepartmentID:   c.Query("department_id"),
		IssueDateFrom:  c.Query("issue_date_from"),
		IssueDateUntil: c.Query("issue_date_until"),
		SortKey:        c.DefaultQuery("sort", service.SortByProjectNumber),
		SortDesc:       c.DefaultQuery("desc", "true") == "true",
		Page:           params.Page,
		Limit:          params.Limit,
	}
	if statuses := c.Query("statuses"); statuses != "" {
		query.Statuses = strings.Split(statuses, ",")
	}

	// Sorting contract: when the client reports its previous sort state, the
	// server resolves the toggle and resets pagination on any change.
	if prevSort := c.Query("prev_sort"); prevSort != "" {
		prevDesc, _ := strconv.ParseBool(c.DefaultQuery("prev_desc", "true"))
		query.SortKey, query.SortDesc = service.ResolveSort(prevSort, prevDesc, query.SortKey)

		prev := query
		prev.SortKey, prev.SortDesc = prevSort, prevDesc
		query.Page = service.PageAfterChange(prev, query)
	}

	page, err := h.ledgerService.ListLedger(c.Request.Context(), query)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}
