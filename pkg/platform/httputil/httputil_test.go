package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "landledger/pkg/domain-errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code dErrors.Code
		want int
	}{
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeUnauthorized, http.StatusUnauthorized},
		{dErrors.CodeForbidden, http.StatusForbidden},
		{dErrors.CodeNotFound, http.StatusNotFound},
		// a transfer on a blocked property
		{dErrors.CodeInvariantViolation, http.StatusConflict},
		{dErrors.CodeNotConfigured, http.StatusServiceUnavailable},
		{dErrors.CodeUpstream, http.StatusBadGateway},
		{dErrors.CodeTimeout, http.StatusGatewayTimeout},
		{dErrors.Code("something_new"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error hides the cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "pq: relation properties does not exist"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("invariant violation carries the reason", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvariantViolation, "property is blocked"))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		body := decodeError(t, w)
		assert.Equal(t, "invariant_violation", body["error"])
		assert.Equal(t, "property is blocked", body["error_description"])
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("chain rpc reset"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Status string `json:"status"`
	}

	req := httptest.NewRequest(http.MethodPatch, "/properties/1/status", strings.NewReader(`{"status":"blocked"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "blocked", dst.Status)

	req = httptest.NewRequest(http.MethodPatch, "/properties/1/status", strings.NewReader(""))
	err := DecodeJSON(req, &dst)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	assert.Equal(t, "request body is empty", dErrors.Message(err))

	req = httptest.NewRequest(http.MethodPatch, "/properties/1/status", strings.NewReader(`{"status":`))
	assert.True(t, dErrors.HasCode(DecodeJSON(req, &dst), dErrors.CodeBadRequest))
}

type offerRequest struct {
	Buyer string `json:"buyer_address"`
}

func (r *offerRequest) Validate() error {
	r.Buyer = strings.ToLower(strings.TrimSpace(r.Buyer))
	if r.Buyer == "" {
		return dErrors.New(dErrors.CodeValidation, "buyer_address is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("normalizes a valid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{"buyer_address":" 0xABC "}`))

		req, ok := DecodeAndPrepare[offerRequest](w, r, logger, context.Background(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "0xabc", req.Buyer)
	})

	t.Run("writes the validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{}`))

		_, ok := DecodeAndPrepare[offerRequest](w, r, logger, context.Background(), "req-2")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "buyer_address is required", decodeError(t, w)["error_description"])
	})
}
