package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"slug": "desk"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[types.SuccessEnvelope](t, rec)
	assert.Equal(t, map[string]any{"slug": "desk"}, body.Data)
}

func TestWriteErrorStatusesAndMessages(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
		details bool
	}{
		{"validation keeps message and details", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").WithDetails(map[string]any{"field": "quantity"}), http.StatusBadRequest, "quantity must be positive", true},
		{"not found keeps message", fmt.Errorf("lookup: %w", pkgerrors.New(pkgerrors.CodeNotFound, "product not found")), http.StatusNotFound, "product not found", false},
		{"aborted hides message", pkgerrors.New(pkgerrors.CodeTransactionAborted, "insert line_items: deadlock"), http.StatusConflict, "transaction aborted, nothing was changed", false},
		{"dependency shows public message", pkgerrors.New(pkgerrors.CodeDependency, "redis timeout").WithDetails(map[string]any{"dependency": "redis"}), http.StatusServiceUnavailable, "dependency unavailable", true},
		{"untyped becomes internal", errors.New("nil pointer"), http.StatusInternalServerError, "internal server error", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			body := decode[types.ErrorEnvelope](t, rec)
			assert.Equal(t, tc.message, body.Error.Message)
			assert.Equal(t, tc.details, body.Error.Details != nil)
		})
	}
}

func TestWriteErrorLogsBySeverity(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, buf.String(), "request.error")

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeValidation, "bad").WithDetails(map[string]any{"field": "email"}))
	assert.Contains(t, buf.String(), "request.rejected")
	assert.Contains(t, buf.String(), `"field":"email"`)
}

func TestWriteResult(t *testing.T) {
	ok := httptest.NewRecorder()
	WriteResult(context.Background(), nil, ok, map[string]int{"total": 4000}, nil)
	okBody := decode[types.ResultEnvelope](t, ok)
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.True(t, okBody.Success)
	assert.Nil(t, okBody.Error)

	failed := httptest.NewRecorder()
	WriteResult(context.Background(), nil, failed, map[string]int{"ignored": 1}, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found"))
	failedBody := decode[types.ResultEnvelope](t, failed)
	assert.Equal(t, http.StatusOK, failed.Code)
	assert.False(t, failedBody.Success)
	assert.Nil(t, failedBody.Data)
	require.NotNil(t, failedBody.Error)
	assert.Equal(t, string(pkgerrors.CodeNotFound), failedBody.Error.Code)
	assert.Equal(t, "cart not found", failedBody.Error.Message)
}
