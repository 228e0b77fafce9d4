package dentist

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/handler"
	"github.com/edconde/clinica3s/internal/middleware"
	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/pkg/httputil"
)

type Service interface {
	GetDentist(ctx context.Context, id uuid.UUID) (*model.Dentist, error)
	ListDentists(ctx context.Context, filters *model.DentistFilters) (*model.Page[*model.Dentist], error)
	UpdateDentist(ctx context.Context, id uuid.UUID, req *model.UpdateDentistRequest) (*model.Dentist, error)
	DeleteDentist(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	admin := auth.RequireRoles(model.RoleAdmin)

	dentists := r.Group("/dentists")
	{
		dentists.GET("", h.ListDentists)
		dentists.GET("/:id", h.GetDentist)
		dentists.PUT("/:id", admin, h.UpdateDentist)
		dentists.DELETE("/:id", admin, h.DeleteDentist)
	}
}

func (h *Handler) ListDentists(c *gin.Context) {
	page, err := handler.QueryPagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	specialtyID, err := handler.QueryUUID(c, "specialtyId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.service.ListDentists(c.Request.Context(), &model.DentistFilters{
		Name:        c.Query("name"),
		SpecialtyID: specialtyID,
		Pagination:  page,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithPagination(c, result.Items, page.Page, page.Size, result.Total)
}

func (h *Handler) GetDentist(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	dentist, err := h.service.GetDentist(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, dentist)
}

func (h *Handler) UpdateDentist(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateDentistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	dentist, err := h.service.UpdateDentist(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, dentist)
}

func (h *Handler) DeleteDentist(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteDentist(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
