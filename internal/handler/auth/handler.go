package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/handler"
	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/pkg/httputil"
)

type Service interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes puts login on the open group and the rest behind authentication.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.Group("/auth").POST("/login", h.Login)
	protected.Group("/auth").PUT("/change-password", h.ChangePassword)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, resp)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), p.UserID, &req); err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "password updated"})
}
