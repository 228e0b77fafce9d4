package report

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edconde/clinica3s/internal/handler"
	"github.com/edconde/clinica3s/internal/middleware"
	"github.com/edconde/clinica3s/internal/model"
	reportsvc "github.com/edconde/clinica3s/internal/service/report"
	"github.com/edconde/clinica3s/pkg/httputil"
)

type Service interface {
	GetDashboardStats(ctx context.Context, year *int) (*model.DashboardStats, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	reports := r.Group("/reports", auth.RequireRoles(model.RoleAdmin, model.RoleReceptionist))
	{
		reports.GET("/dashboard", h.GetDashboard)
	}
}

// GetDashboard returns the stats with months ascending and dentists by name.
func (h *Handler) GetDashboard(c *gin.Context) {
	year, err := handler.QueryInt(c, "year")
	if err != nil {
		_ = c.Error(err)
		return
	}

	stats, err := h.service.GetDashboardStats(c.Request.Context(), year)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, reportsvc.Sorted(stats))
}
