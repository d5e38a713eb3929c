// Package handler exposes the property registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"landledger/internal/platform/middleware"
	"landledger/internal/registry/models"
	"landledger/internal/registry/service"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/platform/middleware/admin"
	"landledger/pkg/requestcontext"
)

// Service defines the registry operations the handler needs.
type Service interface {
	RegisterProperty(ctx context.Context, in models.RegistrationInput) (*models.Property, error)
	GetProperty(ctx context.Context, label string) (*models.Property, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.Property, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Property, error)
	UpdateStatus(ctx context.Context, label, status string) (*models.Property, error)
	BlockProperty(ctx context.Context, label, reason string) (*models.Property, error)
	UnblockProperty(ctx context.Context, label string) (*models.Property, error)
	History(ctx context.Context, label string) ([]*models.Event, error)
	VerifyDocument(ctx context.Context, label, fingerprint string) (*service.Verification, error)

	InitiateTransfer(ctx context.Context, label, buyer string, price *big.Int) (*models.Transfer, error)
	ApproveTransfer(ctx context.Context, transferID int64) (*models.Transfer, error)
	CompleteTransfer(ctx context.Context, transferID int64, payment *big.Int) (*models.Transfer, error)
	CancelTransfer(ctx context.Context, transferID int64) (*models.Transfer, error)
	GetTransfer(ctx context.Context, transferID int64) (*models.Transfer, error)
	ListTransfers(ctx context.Context, label string) ([]*models.Transfer, error)

	AddRegistrar(ctx context.Context, address string) (*models.Registrar, error)
	RemoveRegistrar(ctx context.Context, address string) error
	IsRegistrar(ctx context.Context, address string) (bool, error)
	ListRegistrars(ctx context.Context) ([]*models.Registrar, error)

	Stats(ctx context.Context) (*models.Stats, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
	adminToken   string
}

func New(svc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, adminToken string) *Handler {
	return &Handler{
		service:      svc,
		logger:       logger,
		jwtValidator: jwtValidator,
		adminToken:   adminToken,
	}
}

// Register mounts public reads, bearer-protected mutations and the admin
// registrar surface.
func (h *Handler) Register(r chi.Router) {
	r.Get("/properties", h.HandleQueryProperties)
	r.Get("/properties/{id}", h.HandleGetProperty)
	r.Get("/properties/{id}/history", h.HandleHistory)
	r.Post("/properties/{id}/verify", h.HandleVerify)
	r.Get("/transfers/{id}", h.HandleGetTransfer)
	r.Get("/registry/stats", h.HandleStats)
	r.Get("/registrars/{address}", h.HandleIsRegistrar)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/properties", h.HandleRegisterProperty)
		r.Patch("/properties/{id}", h.HandleUpdateStatus)
		r.Post("/properties/{id}/block", h.HandleBlock)
		r.Post("/properties/{id}/unblock", h.HandleUnblock)
		r.Post("/properties/{id}/transfers", h.HandleInitiateTransfer)
		r.Post("/transfers/{id}/approve", h.HandleApproveTransfer)
		r.Post("/transfers/{id}/complete", h.HandleCompleteTransfer)
		r.Post("/transfers/{id}/cancel", h.HandleCancelTransfer)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/admin/registrars", h.HandleListRegistrars)
		r.Post("/admin/registrars", h.HandleAddRegistrar)
		r.Delete("/admin/registrars/{address}", h.HandleRemoveRegistrar)
	})
}

// fail logs client errors at warn and everything else at error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	ctx := r.Context()
	args := append([]any{
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}, attrs...)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUpstream, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg, args...)
	default:
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}

func transferID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid transfer id %q", raw)
	}
	return id, nil
}

// HandleQueryProperties serves GET /properties?propertyId=|owner=|status=.
// An unknown propertyId answers JSON null rather than 404.
func (h *Handler) HandleQueryProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	switch {
	case q.Get("propertyId") != "":
		p, err := h.service.GetProperty(ctx, q.Get("propertyId"))
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteJSON(w, http.StatusOK, nil)
			return
		}
		if err != nil {
			h.fail(w, r, "property lookup failed", err, "property_id", q.Get("propertyId"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromProperty(p))

	case q.Get("owner") != "":
		ps, err := h.service.ListByOwner(ctx, q.Get("owner"))
		if err != nil {
			h.fail(w, r, "owner listing failed", err, "owner", q.Get("owner"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromProperties(ps))

	case q.Get("status") != "":
		ps, err := h.service.ListByStatus(ctx, q.Get("status"))
		if err != nil {
			h.fail(w, r, "status listing failed", err, "status", q.Get("status"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromProperties(ps))

	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "one of propertyId, owner or status is required"))
	}
}

// HandleGetProperty serves GET /properties/{id}. history=true adds the
// transfers and the event trail, transfers=true only the transfers.
func (h *Handler) HandleGetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	label := chi.URLParam(r, "id")

	p, err := h.service.GetProperty(ctx, label)
	if err != nil {
		h.fail(w, r, "property lookup failed", err, "property_id", label)
		return
	}

	withHistory := r.URL.Query().Get("history") == "true"
	withTransfers := withHistory || r.URL.Query().Get("transfers") == "true"
	if !withTransfers {
		httputil.WriteJSON(w, http.StatusOK, FromProperty(p))
		return
	}

	resp := PropertyDetailResponse{Property: FromProperty(p)}
	transfers, err := h.service.ListTransfers(ctx, label)
	if err != nil {
		h.fail(w, r, "transfer listing failed", err, "property_id", label)
		return
	}
	resp.Transfers = FromTransfers(transfers)
	if withHistory {
		events, err := h.service.History(ctx, label)
		if err != nil {
			h.fail(w, r, "history lookup failed", err, "property_id", label)
			return
		}
		resp.History = FromEvents(events)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "id")
	events, err := h.service.History(r.Context(), label)
	if err != nil {
		h.fail(w, r, "history lookup failed", err, "property_id", label)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(events))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	label := chi.URLParam(r, "id")
	v, err := h.service.VerifyDocument(ctx, label, req.IPFSHash)
	if err != nil {
		h.fail(w, r, "document verification failed", err, "property_id", label)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(v))
}

func (h *Handler) HandleRegisterProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RegisterPropertyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.RegisterProperty(ctx, req.Input())
	if err != nil {
		h.fail(w, r, "property registration failed", err, "caller", requestcontext.CallerAddress(ctx))
		return
	}

	h.logger.InfoContext(ctx, "property registered",
		"request_id", requestID,
		"property_id", p.Label(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromProperty(p))
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[UpdateStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	label := chi.URLParam(r, "id")
	p, err := h.service.UpdateStatus(ctx, label, req.Status)
	if err != nil {
		h.fail(w, r, "status update failed", err, "property_id", label, "status", req.Status)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProperty(p))
}

func (h *Handler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[BlockRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	label := chi.URLParam(r, "id")
	p, err := h.service.BlockProperty(ctx, label, req.Reason)
	if err != nil {
		h.fail(w, r, "block failed", err, "property_id", label)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProperty(p))
}

func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "id")
	p, err := h.service.UnblockProperty(r.Context(), label)
	if err != nil {
		h.fail(w, r, "unblock failed", err, "property_id", label)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProperty(p))
}

func (h *Handler) HandleInitiateTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[InitiateTransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	label := chi.URLParam(r, "id")
	t, err := h.service.InitiateTransfer(ctx, label, req.Buyer, req.ParsedPrice())
	if err != nil {
		h.fail(w, r, "transfer initiation failed", err, "property_id", label)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromTransfer(t))
}

func (h *Handler) HandleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := transferID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.service.GetTransfer(r.Context(), id)
	if err != nil {
		h.fail(w, r, "transfer lookup failed", err, "transfer_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransfer(t))
}

func (h *Handler) HandleApproveTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := transferID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.service.ApproveTransfer(r.Context(), id)
	if err != nil {
		h.fail(w, r, "transfer approval failed", err, "transfer_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransfer(t))
}

func (h *Handler) HandleCompleteTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := transferID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteTransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	t, err := h.service.CompleteTransfer(ctx, id, req.ParsedPayment())
	if err != nil {
		h.fail(w, r, "transfer completion failed", err, "transfer_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransfer(t))
}

func (h *Handler) HandleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := transferID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.service.CancelTransfer(r.Context(), id)
	if err != nil {
		h.fail(w, r, "transfer cancellation failed", err, "transfer_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransfer(t))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "stats failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStats(stats))
}

func (h *Handler) HandleIsRegistrar(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	ok, err := h.service.IsRegistrar(r.Context(), address)
	if err != nil {
		h.fail(w, r, "registrar lookup failed", err, "address", address)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RegistrarResponse{Address: strings.ToLower(address), IsRegistrar: ok})
}

func (h *Handler) HandleListRegistrars(w http.ResponseWriter, r *http.Request) {
	registrars, err := h.service.ListRegistrars(r.Context())
	if err != nil {
		h.fail(w, r, "registrar listing failed", err)
		return
	}
	out := make([]*RegistrarResponse, 0, len(registrars))
	for _, reg := range registrars {
		out = append(out, FromRegistrar(reg))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleAddRegistrar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AddRegistrarRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	reg, err := h.service.AddRegistrar(ctx, req.Address)
	if err != nil {
		h.fail(w, r, "add registrar failed", err, "address", req.Address)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRegistrar(reg))
}

func (h *Handler) HandleRemoveRegistrar(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if err := h.service.RemoveRegistrar(r.Context(), address); err != nil {
		h.fail(w, r, "remove registrar failed", err, "address", address)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
