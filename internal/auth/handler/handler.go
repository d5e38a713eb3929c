// Package handler exposes wallet sign-in.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"landledger/internal/auth/service"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/requestcontext"
)

type Service interface {
	IssueNonce(ctx context.Context, address string) (*service.Challenge, error)
	Login(ctx context.Context, address, signature string) (*service.Session, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/nonce", h.HandleNonce)
	r.Post("/auth/login", h.HandleLogin)
}

type NonceResponse struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleNonce handles GET /auth/nonce?address=.
func (h *Handler) HandleNonce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "address is required"))
		return
	}

	challenge, err := h.service.IssueNonce(ctx, address)
	if err != nil {
		h.logger.WarnContext(ctx, "nonce issue failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NonceResponse{
		Address:   challenge.Address,
		Nonce:     challenge.Nonce,
		Message:   challenge.Message,
		ExpiresAt: challenge.ExpiresAt,
	})
}

type LoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Address = strings.TrimSpace(r.Address)
	r.Signature = strings.TrimSpace(r.Signature)
	switch {
	case r.Address == "":
		return dErrors.New(dErrors.CodeValidation, "address is required")
	case r.Signature == "":
		return dErrors.New(dErrors.CodeValidation, "signature is required")
	}
	return nil
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Address     string `json:"address"`
	Registrar   bool   `json:"registrar"`
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.Login(ctx, req.Address, req.Signature)
	if err != nil {
		h.logger.WarnContext(ctx, "wallet login failed",
			"request_id", requestID,
			"address", req.Address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: session.AccessToken,
		TokenType:   session.TokenType,
		ExpiresIn:   int64(session.ExpiresIn.Seconds()),
		Address:     session.Address,
		Registrar:   session.Registrar,
	})
}
