package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	scheduleService service.ScheduleService
}

func NewScheduleHandler(scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

func (h *ScheduleHandler) RegisterRoutes(router *gin.RouterGroup) {
	schedules := router.Group("/api/schedules")
	{
		schedules.POST("", middleware.RequirePermission("schedules.write"), h.CreateSchedule)
		schedules.GET("", middleware.RequirePermission("schedules.read"), h.ListSchedules)
		schedules.GET("/:id", middleware.RequirePermission("schedules.read"), h.GetSchedule)
		schedules.PUT("/:id", middleware.RequirePermission("schedules.write"), h.UpdateSchedule)
		schedules.DELETE("/:id", middleware.RequirePermission("schedules.write"), h.DeleteSchedule)
	}
}

// CreateSchedule records a day sheet with its actuals
// @Summary      Create schedule
// @Description  Creates a schedule with its actuals list; labor aggregates of every referenced project are recalculated in the same transaction
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateScheduleRequest  true  "Create Schedule Payload"
// @Success      201      {object}  response.Response{data=service.ScheduleResponse}
// @Failure      400      {object}  response.Response "Invalid payload or unknown project referenced by an actual"
// @Router       /api/schedules [post]
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Invalid(err.Error()))
		return
	}

	schedule, err := h.scheduleService.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, schedule))
}

// UpdateSchedule replaces a schedule's actuals list
// @Summary      Update schedule
// @Description  Full-replace update: the submitted actuals list replaces the stored one and every project referenced by either version is recalculated. A failed recalculation fails the whole save.
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Schedule ID"
// @Param        payload  body      service.UpdateScheduleRequest  true  "Update Schedule Payload"
// @Success      200      {object}  response.Response{data=service.ScheduleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/schedules/{id} [put]
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Invalid(err.Error()))
		return
	}

	schedule, err := h.scheduleService.UpdateSchedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, schedule))
}

// DeleteSchedule removes a schedule and releases its hours
// @Summary      Delete schedule
// @Description  Deletes the schedule and its actuals; affected project aggregates are recalculated in the same transaction
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Schedule ID"
// @Success      200 {object}  response.Response
// @Failure      404 {object}  response.Response
// @Router       /api/schedules/{id} [delete]
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	if err := h.scheduleService.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// GetSchedule returns one schedule with its actuals
// @Summary      Get schedule
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Schedule ID"
// @Success      200 {object}  response.Response{data=service.ScheduleResponse}
// @Failure      404 {object}  response.Response
// @Router       /api/schedules/{id} [get]
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.scheduleService.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, schedule))
}

// ListSchedules returns a paginated schedule list
// @Summary      List schedules
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        user_id  query     string  false  "Filter by user"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Items per page (default 20)"
// @Success      200      {object}  response.Response{data=object}
// @Failure      500      {object}  response.Response
// @Router       /api/schedules [get]
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	params := pagination.Parse(c)

	schedules, total, err := h.scheduleService.ListSchedules(c.Request.Context(), c.Query("user_id"), params.Page, params.Limit)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"schedules": schedules,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}
