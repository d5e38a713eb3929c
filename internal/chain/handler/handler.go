// Package handler serves wallet network discovery and read-only contract
// lookups.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"landledger/internal/chain"
	"landledger/internal/registry/models"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/requestcontext"
)

// Reader is the subset of the chain registry the handler reads from.
type Reader interface {
	Network() chain.Network
	Backend() string
	Signer() string
	GetPropertyDetails(ctx context.Context, propertyID int64) (*chain.PropertyDetails, error)
	GetTransferDetails(ctx context.Context, transferID int64) (*chain.TransferDetails, error)
	IsRegistrar(ctx context.Context, address string) (bool, error)
	GetTotalProperties(ctx context.Context) (int64, error)
	GetTotalTransfers(ctx context.Context) (int64, error)
}

// PropertyLookup maps registry ids to contract ids and answers from the
// relational registry when the chain backend cannot serve view calls.
type PropertyLookup interface {
	GetProperty(ctx context.Context, label string) (*models.Property, error)
	GetTransfer(ctx context.Context, transferID int64) (*models.Transfer, error)
}

type Handler struct {
	reader     Reader
	properties PropertyLookup
	logger     *slog.Logger
}

func New(reader Reader, properties PropertyLookup, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, properties: properties, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/chain/network", h.HandleNetwork)
	r.Get("/chain/rpc-url", h.HandleRPCURL)
	r.Get("/chain/properties/{id}", h.HandleGetProperty)
	r.Get("/chain/transfers/{id}", h.HandleGetTransfer)
	r.Get("/chain/registrars/{address}", h.HandleIsRegistrar)
	r.Get("/chain/stats", h.HandleStats)
	r.Get("/chain/tx/{hash}", h.HandleTxLink)
	r.Post("/chain/simulate-register", h.HandleSimulateRegister)
}

var (
	errNotConfigured   = dErrors.New(dErrors.CodeNotConfigured, "Alchemy API key not configured")
	errReadUnsupported = dErrors.New(dErrors.CodeNotConfigured, "contract reads need a live chain backend")

	txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// readFailed maps a contract view failure to the response error.
func (h *Handler) readFailed(ctx context.Context, w http.ResponseWriter, method string, err error) {
	if errors.Is(err, chain.ErrReadUnsupported) {
		httputil.WriteError(w, errReadUnsupported)
		return
	}
	h.logger.ErrorContext(ctx, "chain read failed",
		"request_id", requestcontext.RequestID(ctx),
		"method", method,
		"error", err,
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUpstream, "failed to fetch blockchain data"))
}

func (h *Handler) HandleNetwork(w http.ResponseWriter, r *http.Request) {
	network := h.reader.Network()
	if !network.Configured() {
		httputil.WriteError(w, errNotConfigured)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, network)
}

func (h *Handler) HandleRPCURL(w http.ResponseWriter, r *http.Request) {
	network := h.reader.Network()
	if !network.Configured() {
		httputil.WriteError(w, errNotConfigured)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RPCURLResponse{RPCURL: network.RPCURL})
}

// HandleGetProperty reads the contract when possible. Unknown properties
// answer exists=false with the zero address, never 404.
func (h *Handler) HandleGetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	label := chi.URLParam(r, "id")
	id, err := models.ParseLabel(label)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.properties.GetProperty(ctx, models.FormatLabel(id))
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		httputil.WriteJSON(w, http.StatusOK, missingProperty())
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if p.ChainID > 0 {
		details, err := h.reader.GetPropertyDetails(ctx, p.ChainID)
		switch {
		case err == nil:
			httputil.WriteJSON(w, http.StatusOK, OnChainProperty{
				Owner:     details.Owner,
				IPFSHash:  details.IPFSHash,
				Location:  details.Location,
				Timestamp: details.RegistrationDate.Unix(),
				Exists:    details.Owner != "" && details.Owner != common.Address{}.Hex(),
			})
			return
		case !errors.Is(err, chain.ErrReadUnsupported):
			h.readFailed(ctx, w, "getPropertyDetails", err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, OnChainProperty{
		Owner:     common.HexToAddress(p.OwnerAddress).Hex(),
		IPFSHash:  p.IPFSHash,
		Location:  p.Location,
		Timestamp: p.RegisteredAt.Unix(),
		Exists:    true,
	})
}

// HandleGetTransfer reads the contract's view of a registry transfer.
func (h *Handler) HandleGetTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "invalid transfer id %q", raw))
		return
	}
	t, err := h.properties.GetTransfer(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if t.ChainID <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "transfer has no contract record"))
		return
	}

	details, err := h.reader.GetTransferDetails(ctx, t.ChainID)
	if err != nil {
		h.readFailed(ctx, w, "getTransferDetails", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) HandleIsRegistrar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, err := models.NormalizeAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ok, err := h.reader.IsRegistrar(ctx, addr)
	if err != nil {
		h.readFailed(ctx, w, "isRegistrar", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OnChainRegistrar{Address: addr, IsRegistrar: ok})
}

// HandleStats reports the backend and signer. Contract totals are left
// out when the backend cannot serve view calls.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := ChainStats{
		Backend: h.reader.Backend(),
		Signer:  h.reader.Signer(),
		Network: h.reader.Network().Name,
	}

	properties, err := h.reader.GetTotalProperties(ctx)
	switch {
	case errors.Is(err, chain.ErrReadUnsupported):
		httputil.WriteJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		h.readFailed(ctx, w, "getTotalProperties", err)
		return
	}
	transfers, err := h.reader.GetTotalTransfers(ctx)
	if err != nil {
		h.readFailed(ctx, w, "getTotalTransfers", err)
		return
	}
	resp.TotalProperties = &properties
	resp.TotalTransfers = &transfers
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleTxLink resolves a transaction hash to its block explorer page.
// Simulated hashes were never broadcast and get no link.
func (h *Handler) HandleTxLink(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if !txHashPattern.MatchString(hash) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "invalid transaction hash %q", hash))
		return
	}
	resp := TxLink{TransactionHash: strings.ToLower(hash), Simulated: h.reader.Backend() == "simulated"}
	if !resp.Simulated {
		resp.ExplorerURL = h.reader.Network().TxURL(resp.TransactionHash)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleSimulateRegister returns a deterministic demo hash for the
// submitted fields without touching the registry.
func (h *Handler) HandleSimulateRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SimulateRegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	hash := chain.SimulateRegistration(chain.RegistrationFields{
		PropertyID:   strings.ToUpper(req.PropertyID),
		IPFSHash:     req.IPFSHash,
		Location:     req.Location,
		OwnerAddress: req.OwnerAddress,
	}, requestcontext.Now(ctx))

	httputil.WriteJSON(w, http.StatusOK, SimulateRegisterResponse{
		Success:         true,
		TransactionHash: hash,
		Message:         "Property registered successfully (simulated)",
	})
}

type RPCURLResponse struct {
	RPCURL string `json:"rpcUrl"`
}

type OnChainProperty struct {
	Owner     string `json:"owner"`
	IPFSHash  string `json:"ipfsHash"`
	Location  string `json:"location"`
	Timestamp int64  `json:"timestamp"`
	Exists    bool   `json:"exists"`
}

type OnChainRegistrar struct {
	Address     string `json:"address"`
	IsRegistrar bool   `json:"isRegistrar"`
}

type ChainStats struct {
	Backend         string `json:"backend"`
	Signer          string `json:"signer,omitempty"`
	Network         string `json:"network"`
	TotalProperties *int64 `json:"totalProperties,omitempty"`
	TotalTransfers  *int64 `json:"totalTransfers,omitempty"`
}

type TxLink struct {
	TransactionHash string `json:"transactionHash"`
	ExplorerURL     string `json:"explorerUrl,omitempty"`
	Simulated       bool   `json:"simulated"`
}

func missingProperty() OnChainProperty {
	return OnChainProperty{Owner: common.Address{}.Hex()}
}

type SimulateRegisterRequest struct {
	PropertyID   string `json:"propertyId"`
	IPFSHash     string `json:"ipfsHash"`
	Location     string `json:"location"`
	OwnerAddress string `json:"ownerAddress"`
}

func (r *SimulateRegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.PropertyID = strings.TrimSpace(r.PropertyID)
	if r.PropertyID == "" {
		return dErrors.New(dErrors.CodeValidation, "propertyId is required")
	}
	if len(r.Location) > 1024 || len(r.IPFSHash) > 256 {
		return dErrors.New(dErrors.CodeValidation, "field too long")
	}
	return nil
}

type SimulateRegisterResponse struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash"`
	Message         string `json:"message"`
}
