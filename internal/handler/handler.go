// Package handler holds the request parsing shared by the per-resource handlers.
package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/authz"
	"github.com/edconde/clinica3s/internal/middleware"
	"github.com/edconde/clinica3s/internal/model"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
	"github.com/edconde/clinica3s/pkg/httputil"
)

// Accepted layouts for date query parameters, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParamUUID parses a path parameter. On failure it records a BadRequest on c and returns false.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// QueryUUID returns nil when the parameter is absent.
func QueryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.BadRequest("invalid "+name, err)
	}
	return &id, nil
}

// QueryTime returns nil when the parameter is absent.
func QueryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.BadRequest("invalid "+name+": expected ISO-8601 date-time", nil)
}

// QueryInt returns nil when the parameter is absent.
func QueryInt(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.BadRequest("invalid "+name, err)
	}
	return &n, nil
}

// QueryPagination reads ?page=&size=, page being zero based.
func QueryPagination(c *gin.Context) (model.Pagination, error) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		return p, httputil.BindError(err)
	}
	return p.Normalize(), nil
}

// Principal returns the authenticated caller. Routes using it sit behind Authenticate.
func Principal(c *gin.Context) (authz.Principal, error) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return p, apperrors.Unauthorized("")
	}
	return p, nil
}
