// Package catalog serves the billable services and the specialties they belong to.
package catalog

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
	CreateService(ctx context.Context, req *model.ServiceRequest) (*model.Service, error)
	GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
	UpdateService(ctx context.Context, id uuid.UUID, req *model.ServiceRequest) (*model.Service, error)
	DeleteService(ctx context.Context, id uuid.UUID) error
	ListServices(ctx context.Context, page model.Pagination) (*model.Page[*model.Service], error)
	ListServicesBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]*model.Service, error)

	CreateSpecialty(ctx context.Context, req *model.SpecialtyRequest) (*model.Specialty, error)
	GetSpecialty(ctx context.Context, id uuid.UUID) (*model.Specialty, error)
	UpdateSpecialty(ctx context.Context, id uuid.UUID, req *model.SpecialtyRequest) (*model.Specialty, error)
	DeleteSpecialty(ctx context.Context, id uuid.UUID) error
	ListSpecialties(ctx context.Context) ([]*model.Specialty, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	admin := auth.RequireRoles(model.RoleAdmin)

	services := r.Group("/services")
	{
		services.GET("", h.ListServices)
		services.GET("/:id", h.GetService)
		services.GET("/specialty/:specialtyId", h.ListServicesBySpecialty)
		services.POST("", admin, h.CreateService)
		services.PUT("/:id", admin, h.UpdateService)
		services.DELETE("/:id", admin, h.DeleteService)
	}

	specialties := r.Group("/specialties")
	{
		specialties.GET("", h.ListSpecialties)
		specialties.GET("/:id", h.GetSpecialty)
		specialties.POST("", admin, h.CreateSpecialty)
		specialties.PUT("/:id", admin, h.UpdateSpecialty)
		specialties.DELETE("/:id", admin, h.DeleteSpecialty)
	}
}

func (h *Handler) ListServices(c *gin.Context) {
	page, err := handler.QueryPagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.service.ListServices(c.Request.Context(), page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithPagination(c, result.Items, page.Page, page.Size, result.Total)
}

func (h *Handler) GetService(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	service, err := h.service.GetService(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, service)
}

func (h *Handler) ListServicesBySpecialty(c *gin.Context) {
	specialtyID, ok := handler.ParamUUID(c, "specialtyId")
	if !ok {
		return
	}

	services, err := h.service.ListServicesBySpecialty(c.Request.Context(), specialtyID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, services)
}

func (h *Handler) CreateService(c *gin.Context) {
	var req model.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	service, err := h.service.CreateService(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, service)
}

func (h *Handler) UpdateService(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	service, err := h.service.UpdateService(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, service)
}

func (h *Handler) DeleteService(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteService(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListSpecialties(c *gin.Context) {
	specialties, err := h.service.ListSpecialties(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, specialties)
}

func (h *Handler) GetSpecialty(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	specialty, err := h.service.GetSpecialty(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, specialty)
}

func (h *Handler) CreateSpecialty(c *gin.Context) {
	var req model.SpecialtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	specialty, err := h.service.CreateSpecialty(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, specialty)
}

func (h *Handler) UpdateSpecialty(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.SpecialtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	specialty, err := h.service.UpdateSpecialty(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, specialty)
}

func (h *Handler) DeleteSpecialty(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSpecialty(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
