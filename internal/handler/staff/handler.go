package staff

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vaccine-clinic-api/internal/handler"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/staff"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/httputil"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/validator"
)

type Handler struct {
	directory *staff.Directory
	validator *validator.Validator
}

func NewHandler(directory *staff.Directory, v *validator.Validator) *Handler {
	return &Handler{directory: directory, validator: v}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	members := r.Group("/staff")
	{
		members.POST("", h.CreateStaff)
		members.GET("", h.ListStaff)
		members.GET("/:id", h.GetStaff)
		members.PATCH("/:id", h.UpdateStaff)
	}
}

type createStaffRequest struct {
	Name  string     `json:"name" validate:"required,max=200"`
	Email string     `json:"email" validate:"omitempty,email"`
	Role  model.Role `json:"role" validate:"required,role"`
}

func (h *Handler) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := handler.BindJSON(c, &req, false); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	member := &model.Staff{Name: req.Name, Email: req.Email, Role: req.Role, Active: true}
	if err := h.directory.Register(c.Request.Context(), member); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, member)
}

func (h *Handler) ListStaff(c *gin.Context) {
	members, err := h.directory.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, members)
}

func (h *Handler) GetStaff(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	member, err := h.directory.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, member)
}

type updateStaffRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// UpdateStaff toggles whether a staff member can be assigned.
func (h *Handler) UpdateStaff(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req updateStaffRequest
	if err := handler.BindJSON(c, &req, false); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	member, err := h.directory.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, member)
}
