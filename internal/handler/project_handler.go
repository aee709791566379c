package handler

import (
	"errors"
	"net/http"
	"time"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService service.ProjectService
	evmService     service.EVMService
}

func NewProjectHandler(projectService service.ProjectService, evmService service.EVMService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		evmService:     evmService,
	}
}

func (h *ProjectHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/api/projects")
	{
		projects.POST("", middleware.RequirePermission("projects.write"), h.CreateProject)
		projects.GET("", middleware.RequirePermission("projects.read"), h.ListProjects)
		projects.GET("/:id", middleware.RequirePermission("projects.read"), h.GetProject)
		projects.PUT("/:id", middleware.RequirePermission("projects.write"), h.UpdateProject)
		projects.GET("/:id/evm", middleware.RequirePermission("projects.read"), h.GetProjectEVM)
	}
}

// CreateProject registers a project
// @Summary      Create project
// @Tags         projects
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProjectRequest  true  "Create Project Payload"
// @Success      201      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Invalid(err.Error()))
		return
	}

	userID := c.GetString("userID")
	project, err := h.projectService.CreateProject(c.Request.Context(), req, userID)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, project))
}

// UpdateProject edits a project; a changed hourly rate rescales its labor cost
// @Summary      Update project
// @Description  Updates project master data. When the hourly rate changes the cached labor cost is rescaled inside the same transaction.
// @Tags         projects
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Project ID"
// @Param        payload  body      service.UpdateProjectRequest  true  "Update Project Payload"
// @Success      200      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req service.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Invalid(err.Error()))
		return
	}

	userID := c.GetString("userID")
	project, err := h.projectService.UpdateProject(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		status := projectStatusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// GetProject returns one project with its labor aggregate
// @Summary      Get project
// @Tags         projects
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Project ID"
// @Success      200 {object}  response.Response{data=service.ProjectResponse}
// @Failure      404 {object}  response.Response
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := projectStatusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// ListProjects returns a paginated project list
// @Summary      List projects
// @Tags         projects
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	params := pagination.Parse(c)

	projects, total, err := h.projectService.ListProjects(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetProjectEVM returns the earned-value snapshot and daily series
// @Summary      Project EVM metrics
// @Description  Computes PV/EV/AC and the derived indices as of the given date. SPI/CPI are omitted when their denominators are zero. Past series samples project the current labor aggregate backwards (series_approximate).
// @Tags         projects
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Project ID"
// @Param        as_of  query     string  false  "Evaluation date (YYYY-MM-DD, default today)"
// @Success      200    {object}  response.Response{data=service.EVMResponse}
// @Failure      400    {object}  response.Response "Invalid as_of date"
// @Failure      404    {object}  response.Response
// @Router       /api/projects/{id}/evm [get]
func (h *ProjectHandler) GetProjectEVM(c *gin.Context) {
	asOf := time.Now()
	if asOfStr := c.Query("as_of"); asOfStr != "" {
		parsed, err := time.Parse("2006-01-02", asOfStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid as_of date format, expected YYYY-MM-DD"))
			return
		}
		asOf = parsed
	}

	evm, err := h.evmService.GetProjectEVM(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		status := projectStatusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, evm))
}

// projectStatusFor treats a missing project as 404 — outside a reconciliation
// it is the requested resource, not a bad reference inside a payload.
func projectStatusFor(err error) int {
	if errors.Is(err, service.ErrProjectNotFound) {
		return http.StatusNotFound
	}
	return statusFor(err)
}
