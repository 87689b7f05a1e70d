package schedule

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/handler"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/schedule"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/collection"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/httputil"
)

type Handler struct {
	service *schedule.Service
}

func NewHandler(service *schedule.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	schedules := r.Group("/schedules")
	{
		schedules.POST("", h.CreateSchedule)
		schedules.GET("/:id", h.GetSchedule)
		schedules.GET("/:id/work-dates", h.ListWorkDates)
	}

	workDates := r.Group("/work-dates")
	{
		workDates.POST("/staff", h.AddStaff)
		workDates.GET("/:id/assignments", h.ListAssignments)
		workDates.PATCH("/:id/assignments/:staff_id", h.SetAssignmentStatus)
	}
}

func (h *Handler) CreateSchedule(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var def model.ScheduleDefinition
	if err := handler.BindJSON(c, &def, false); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	result, err := h.service.CreateSchedule(c.Request.Context(), actor, &def)
	if err != nil {
		if result != nil {
			httputil.RespondWithPartial(c, err, result)
			return
		}
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	sched, err := h.service.GetSchedule(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, sched)
}

func (h *Handler) ListWorkDates(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	workDates, err := h.service.ListWorkDates(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, workDates)
}

func (h *Handler) AddStaff(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.AddStaffRequest
	if err := handler.BindJSON(c, &req, false); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	results, err := h.service.AddStaff(c.Request.Context(), actor, &req)
	if err != nil {
		if results != nil {
			httputil.RespondWithPartial(c, err, assignmentsBody(results))
			return
		}
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, assignmentsBody(results))
}

func assignmentsBody(results []model.AssignmentResult) gin.H {
	return gin.H{
		"assignments": results,
		"work_dates":  nestByWorkDate(results),
	}
}

type workDateOutcomes struct {
	WorkDateID  uuid.UUID                `json:"work_date_id"`
	Assignments []model.AssignmentResult `json:"assignments"`
}

func nestByWorkDate(results []model.AssignmentResult) []workDateOutcomes {
	keys, groups := collection.GroupBy(results, func(r model.AssignmentResult) uuid.UUID { return r.WorkDateID })
	nested := make([]workDateOutcomes, 0, len(keys))
	for _, k := range keys {
		nested = append(nested, workDateOutcomes{WorkDateID: k, Assignments: groups[k]})
	}
	return nested
}

func (h *Handler) ListAssignments(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	assignments, err := h.service.ListAssignments(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, assignments)
}

type statusRequest struct {
	Status model.AssignmentStatus `json:"status"`
}

func (h *Handler) SetAssignmentStatus(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	workDateID, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	staffID, err := handler.UUIDParam(c, "staff_id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req statusRequest
	if err := handler.BindJSON(c, &req, false); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.SetAssignmentStatus(c.Request.Context(), actor, workDateID, staffID, req.Status); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"work_date_id": workDateID,
		"staff_id":     staffID,
		"status":       req.Status,
	})
}
