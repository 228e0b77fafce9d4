package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edconde/clinica3s/internal/authz"
	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/pkg/auth"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
	"github.com/edconde/clinica3s/pkg/httputil"
)

const ContextPrincipal = "principal"

type AuthMiddleware struct {
	jwtService auth.JWTService
}

func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate verifies the bearer token and stores the caller in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.Unauthorized("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}

		claims, err := m.jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortWithError(c, apperrors.Unauthorized("invalid token"))
			return
		}

		c.Set(ContextPrincipal, authz.Principal{
			UserID:    claims.UserID,
			Username:  claims.Username,
			Role:      model.Role(claims.Role),
			DentistID: claims.DentistID,
		})
		c.Next()
	}
}

// RequireRoles lets the request through only when the caller holds one of roles.
func (m *AuthMiddleware) RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			abortWithError(c, apperrors.Unauthorized(""))
			return
		}
		if !p.HasRole(roles...) {
			abortWithError(c, apperrors.Forbidden("insufficient role"))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the caller set by Authenticate.
func GetPrincipal(c *gin.Context) (authz.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return authz.Principal{}, false
	}
	p, ok := v.(authz.Principal)
	return p, ok
}

func abortWithError(c *gin.Context, err error) {
	httputil.RespondWithError(c, err)
	c.Abort()
}
