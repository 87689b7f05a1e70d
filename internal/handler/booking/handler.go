package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/handler"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/booking"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/collection"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.RegisterBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/transitions/:action", h.Transition)
	}
}

func (h *Handler) RegisterBooking(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.RegisterBookingRequest
	if err := handler.BindJSON(c, &req, false); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	detail, err := h.service.Register(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, detail)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, bookingView{
		BookingDetail: detail,
		Vaccines:      nestByVaccine(detail.Orders),
	})
}

type vaccineOrders struct {
	VaccineID uuid.UUID             `json:"vaccine_id"`
	Orders    []*model.VaccineOrder `json:"orders"`
}

// bookingView adds the booking's orders grouped per vaccine.
type bookingView struct {
	*model.BookingDetail
	Vaccines []vaccineOrders `json:"vaccines"`
}

func nestByVaccine(orders []*model.VaccineOrder) []vaccineOrders {
	keys, groups := collection.GroupBy(orders, func(o *model.VaccineOrder) uuid.UUID { return o.VaccineID })
	nested := make([]vaccineOrders, 0, len(keys))
	for _, k := range keys {
		nested = append(nested, vaccineOrders{VaccineID: k, Orders: groups[k]})
	}
	return nested
}

type listQuery struct {
	Date    string `form:"date"`
	Status  string `form:"status"`
	ChildID string `form:"child_id"`
	model.Pagination
}

func (h *Handler) ListBookings(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid query", err))
		return
	}

	filters := &model.BookingFilters{Pagination: q.Pagination}
	if q.Date != "" {
		d, err := model.ParseDate(q.Date)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid date", err))
			return
		}
		filters.AppointmentDate = d
	}
	if q.Status != "" {
		status, ok := model.ParseBookingStatus(q.Status)
		if !ok {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid status", nil))
			return
		}
		filters.Status = status
	}
	if q.ChildID != "" {
		id, err := uuid.Parse(q.ChildID)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid child_id", err))
			return
		}
		filters.ChildID = id
	}

	bookings, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	total, err := h.service.Count(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, bookings, filters.Page, filters.PageSize, total)
}

// Transition applies one lifecycle action. The body is the action payload and
// may be empty for actions that take none.
func (h *Handler) Transition(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var payload booking.Payload
	if err := handler.BindJSON(c, &payload, true); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	updated, err := h.service.Transition(c.Request.Context(), id, booking.Action(c.Param("action")), payload, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}
