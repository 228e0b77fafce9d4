package appointment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/authz"
	"github.com/edconde/clinica3s/internal/handler"
	"github.com/edconde/clinica3s/internal/middleware"
	"github.com/edconde/clinica3s/internal/model"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
	"github.com/edconde/clinica3s/pkg/httputil"
)

type Service interface {
	CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	PayAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListAppointments(ctx context.Context, filters *model.AppointmentFilters) (*model.Page[*model.Appointment], error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	staff := auth.RequireRoles(model.RoleAdmin, model.RoleReceptionist)

	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("", staff, h.CreateAppointment)
		appointments.PUT("/:id/pay", staff, h.PayAppointment)
		appointments.PUT("/:id/status",
			auth.RequireRoles(model.RoleAdmin, model.RoleReceptionist, model.RoleDentist),
			h.UpdateStatus)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	appointment, err := h.service.CreateAppointment(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, model.NewAppointmentResponse(appointment))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	p, err := handler.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	appointment, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !authz.CanViewAppointment(p, appointment) {
		_ = c.Error(apperrors.Forbidden("appointment belongs to another dentist"))
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, model.NewAppointmentResponse(appointment))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := authz.ScopeAppointmentFilters(p, filters); err != nil {
		_ = c.Error(err)
		return
	}

	page, err := h.service.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		_ = c.Error(err)
		return
	}

	content := make([]model.AppointmentResponse, 0, len(page.Items))
	for _, a := range page.Items {
		content = append(content, model.NewAppointmentResponse(a))
	}
	httputil.RespondWithPagination(c, content, filters.Page, filters.Size, page.Total)
}

func (h *Handler) PayAppointment(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	appointment, err := h.service.PayAppointment(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, model.NewAppointmentResponse(appointment))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	status := model.AppointmentStatus(c.Query("status"))
	if !status.Valid() {
		_ = c.Error(apperrors.BadRequest("status must be one of PENDING, COMPLETED, NO_SHOW", nil))
		return
	}

	appointment, err := h.service.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, model.NewAppointmentResponse(appointment))
}

func parseFilters(c *gin.Context) (*model.AppointmentFilters, error) {
	page, err := handler.QueryPagination(c)
	if err != nil {
		return nil, err
	}
	filters := &model.AppointmentFilters{Pagination: page}

	if filters.PatientID, err = handler.QueryUUID(c, "patientId"); err != nil {
		return nil, err
	}
	if filters.DentistID, err = handler.QueryUUID(c, "dentistId"); err != nil {
		return nil, err
	}
	if raw := c.Query("status"); raw != "" {
		status := model.AppointmentStatus(raw)
		if !status.Valid() {
			return nil, apperrors.BadRequest("invalid status", nil)
		}
		filters.Status = &status
	}
	if filters.StartDate, err = handler.QueryTime(c, "startDate"); err != nil {
		return nil, err
	}
	if filters.EndDate, err = handler.QueryTime(c, "endDate"); err != nil {
		return nil, err
	}
	if filters.Sort, err = model.ParseAppointmentSort(c.Query("sort")); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	return filters, nil
}
