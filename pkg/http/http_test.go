package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Query   string  `json:"query" query:"query" validate:"required,max=8"`
	Balance float64 `json:"account_balance" validate:"omitempty,gt=0"`
	Retries int     `json:"retries" default:"3"`
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		codes []string
		field string
	}{
		{name: "valid", body: `{"query":"eurusd"}`},
		{name: "missing query", body: `{}`, codes: []string{"ERR_REQUIRED"}, field: "query"},
		{name: "query too long", body: `{"query":"far too long"}`, codes: []string{"ERR_MAX"}, field: "query"},
		{name: "negative balance", body: `{"query":"eurusd","account_balance":-1}`, codes: []string{"ERR_GT"}, field: "account_balance"},
		{name: "malformed body", body: `{"query":`, codes: []string{"ERR_BIND"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, "/", tt.body)
			var req sampleRequest
			errs := ReadAndValidateRequest(c, &req)

			if tt.codes == nil {
				require.Empty(t, errs)
				assert.Equal(t, 3, req.Retries, "defaults are applied")
				return
			}
			require.Len(t, errs, len(tt.codes))
			assert.Equal(t, tt.codes[0], errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidateReadsQueryParams(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/?query=gbpusd", "")
	var req sampleRequest
	require.Empty(t, ReadAndValidateRequest(c, &req))
	assert.Equal(t, "gbpusd", req.Query)
}

func TestErrorHandlerRendersAppErrors(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	ErrorHandler(fmt.Errorf("wrapped: %w", NotFoundError("job not found")), c)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_NOT_FOUND", body.Data[0].Code)
}

func TestErrorHandlerHidesUnknownErrors(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	ErrorHandler(errors.New("database password is hunter2"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestErrorHandlerRendersEchoErrors(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	ErrorHandler(echo.NewHTTPError(http.StatusMethodNotAllowed), c)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "Method Not Allowed")
}
