package content

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/requestcontext"
)

const maxUploadBytes = 32 << 20

// Pinner is the part of Client the handler uses.
type Pinner interface {
	PinFile(ctx context.Context, filename string, r io.Reader, name string) (*PinResult, error)
	PinJSON(ctx context.Context, document json.RawMessage, name string) (*PinResult, error)
	URL(fingerprint string) string
}

type Handler struct {
	pinner Pinner
	logger *slog.Logger
}

func NewHandler(pinner Pinner, logger *slog.Logger) *Handler {
	return &Handler{pinner: pinner, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/content", h.HandleUpload)
	r.Get("/content/{hash}/url", h.HandleURL)
}

// HandleUpload accepts multipart form data carrying either a file or a
// jsonData document. metadata names the pin.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "expected multipart form data"))
		return
	}
	name := strings.TrimSpace(r.FormValue("metadata"))

	var (
		result *PinResult
		err    error
	)
	file, header, ferr := r.FormFile("file")
	switch {
	case ferr == nil:
		defer file.Close()
		result, err = h.pinner.PinFile(ctx, header.Filename, file, name)
	case r.FormValue("jsonData") != "":
		doc := json.RawMessage(r.FormValue("jsonData"))
		if !json.Valid(doc) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "jsonData is not valid JSON"))
			return
		}
		result, err = h.pinner.PinJSON(ctx, doc, name)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "No file or metadata provided"))
		return
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "ipfs upload failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, uploadError(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func uploadError(err error) error {
	var upload *UploadError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return dErrors.New(dErrors.CodeNotConfigured, "Pinata API keys not configured")
	case errors.As(err, &upload):
		return dErrors.Wrap(err, dErrors.CodeUpstream, "Pinata error: "+upload.Body)
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "upload to IPFS timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "Failed to upload to IPFS")
	}
}

type URLResponse struct {
	IPFSHash string `json:"ipfs_hash"`
	URL      string `json:"url"`
}

func (h *Handler) HandleURL(w http.ResponseWriter, r *http.Request) {
	hash := strings.TrimSpace(chi.URLParam(r, "hash"))
	if hash == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "ipfs hash is required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, URLResponse{IPFSHash: hash, URL: h.pinner.URL(hash)})
}
