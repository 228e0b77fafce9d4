// Package handlertest wires a gin engine the way the router does, for handler tests.
package handlertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/middleware"
	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/pkg/auth"
)

const secret = "handler-test-secret"

type Env struct {
	Engine *gin.Engine
	Public *gin.RouterGroup
	API    *gin.RouterGroup
	Auth   *middleware.AuthMiddleware
	jwt    auth.JWTService
}

// New returns an engine with error rendering and validation installed, an open
// /api group and an authenticated one.
func New(t *testing.T) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := middleware.DefaultValidationConfig()
	require.NoError(t, middleware.RegisterValidators(cfg))

	jwtSvc := auth.NewJWTService(auth.Config{Secret: secret, Expiry: time.Hour})
	authMW := middleware.NewAuthMiddleware(jwtSvc)

	engine := gin.New()
	engine.Use(middleware.ErrorHandler(), middleware.Validation(cfg))

	public := engine.Group("/api")
	api := engine.Group("/api", authMW.Authenticate())

	return &Env{Engine: engine, Public: public, API: api, Auth: authMW, jwt: jwtSvc}
}

// Token issues a bearer token for role. dentistID applies to DENTIST callers.
func (e *Env) Token(t *testing.T, role model.Role, dentistID *uuid.UUID) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(auth.Subject{
		UserID:    uuid.New(),
		Username:  string(role),
		Role:      string(role),
		DentistID: dentistID,
	})
	require.NoError(t, err)
	return token
}

// Do sends the request with token (when non-empty) and body encoded as JSON.
func (e *Env) Do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Engine.ServeHTTP(w, req)
	return w
}

// Body is the decoded envelope of a JSON response.
type Body struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func Decode(t *testing.T, w *httptest.ResponseRecorder) Body {
	t.Helper()
	var b Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b), w.Body.String())
	return b
}

// DecodeData unmarshals the data field into out.
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	b := Decode(t, w)
	require.NoError(t, json.Unmarshal(b.Data, out), string(b.Data))
}

// Page mirrors httputil.PaginatedResponse with raw content.
type Page struct {
	Content    json.RawMessage `json:"content"`
	Pagination struct {
		Page      int `json:"page"`
		Size      int `json:"size"`
		Total     int `json:"total"`
		TotalPage int `json:"total_pages"`
	} `json:"pagination"`
}
