package audit

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/handler"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/audit"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/collection"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/httputil"
)

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("/logs", h.ListLogs)
		audit.GET("/logs/entity/:type/:id", h.GetEntityLogs)
		audit.GET("/export", h.ExportLogs)
		audit.GET("/aggregate", h.GetAggregateStats)
	}
}

type logQuery struct {
	ActorID    string `form:"actor_id"`
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	Since      string `form:"since"`
	model.Pagination
}

func parseFilters(c *gin.Context) (*model.AuditFilters, error) {
	var q logQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return nil, apperrors.NewValidation("invalid query", err)
	}

	filters := &model.AuditFilters{EntityType: q.EntityType, Pagination: q.Pagination}
	if q.ActorID != "" {
		id, err := uuid.Parse(q.ActorID)
		if err != nil {
			return nil, apperrors.NewValidation("invalid actor_id", err)
		}
		filters.ActorID = id
	}
	if q.EntityID != "" {
		id, err := uuid.Parse(q.EntityID)
		if err != nil {
			return nil, apperrors.NewValidation("invalid entity_id", err)
		}
		filters.EntityID = id
	}
	if q.Since != "" {
		since, err := time.Parse(time.RFC3339, q.Since)
		if err != nil {
			return nil, apperrors.NewValidation("invalid since, expected RFC3339", err)
		}
		filters.Since = since
	}
	return filters, nil
}

func (h *Handler) ListLogs(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, logs)
}

func (h *Handler) GetEntityLogs(c *gin.Context) {
	entityID, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), &model.AuditFilters{
		EntityType: c.Param("type"),
		EntityID:   entityID,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, logs)
}

func (h *Handler) ExportLogs(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "json" {
		httputil.RespondWithError(c, apperrors.NewValidation("unsupported format", nil))
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	filename := fmt.Sprintf("audit_logs_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		writer := csv.NewWriter(c.Writer)
		_ = writer.Write([]string{"ID", "Actor ID", "Actor Role", "Action", "Entity Type", "Entity ID", "Result", "Reason", "Request ID", "Created At"})
		for _, log := range logs {
			_ = writer.Write([]string{
				log.ID.String(),
				log.ActorID.String(),
				string(log.ActorRole),
				log.Action,
				log.EntityType,
				log.EntityID.String(),
				log.Result,
				log.Reason,
				log.RequestID,
				log.CreatedAt.Format(time.RFC3339),
			})
		}
		writer.Flush()
	case "json":
		c.JSON(http.StatusOK, logs)
	}
}

type AggregateResponse struct {
	TotalLogs    int            `json:"total_logs"`
	ActionCounts map[string]int `json:"action_counts"`
	ResultCounts map[string]int `json:"result_counts"`
	ActorCounts  map[string]int `json:"actor_counts"`
}

func (h *Handler) GetAggregateStats(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if filters.Since.IsZero() {
		filters.Since = time.Now().AddDate(0, 0, -7)
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, AggregateResponse{
		TotalLogs:    len(logs),
		ActionCounts: countBy(logs, func(l *model.AuditLog) string { return l.Action }),
		ResultCounts: countBy(logs, func(l *model.AuditLog) string { return l.Result }),
		ActorCounts:  countBy(logs, func(l *model.AuditLog) string { return string(l.ActorRole) }),
	})
}

func countBy(logs []*model.AuditLog, key func(*model.AuditLog) string) map[string]int {
	keys, groups := collection.GroupBy(logs, key)
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k] = len(groups[k])
	}
	return counts
}
