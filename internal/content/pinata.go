// Package content pins property documents and metadata to IPFS through
// Pinata and resolves content fingerprints to gateway URLs.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"landledger/internal/platform/config"
)

const (
	defaultAPIURL       = "https://api.pinata.cloud"
	defaultGatewayHost  = "gateway.pinata.cloud"
	defaultMetadataName = "property-metadata"
	maxErrorBody        = 4 << 10
)

var (
	ErrNotConfigured = errors.New("pinata API keys not configured")
	ErrUploadFailed  = errors.New("pinata upload failed")
)

// UploadError carries Pinata's status and body. It matches ErrUploadFailed.
type UploadError struct {
	Status int
	Body   string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("pinata error %d: %s", e.Status, e.Body)
}

func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

// PinResult mirrors Pinata's pin response.
type PinResult struct {
	IPFSHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type Client struct {
	apiKey     string
	secretKey  string
	gateway    string
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(cfg config.ContentConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:     cfg.PinataAPIKey,
		secretKey:  cfg.PinataSecretKey,
		gateway:    cfg.PinataGateway,
		apiURL:     strings.TrimRight(cfg.PinataAPIURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	if c.apiURL == "" {
		c.apiURL = defaultAPIURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.apiKey != "" && c.secretKey != ""
}

// PinFile streams r to pinFileToIPFS. name, when set, becomes the pin's
// metadata name.
func (c *Client) PinFile(ctx context.Context, filename string, r io.Reader, name string) (*PinResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil && name != "" {
			meta, _ := json.Marshal(map[string]string{"name": name})
			err = form.WriteField("pinataMetadata", string(meta))
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/pinning/pinFileToIPFS", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.pin(req)
}

// PinJSON pins an arbitrary JSON document.
func (c *Client) PinJSON(ctx context.Context, document json.RawMessage, name string) (*PinResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if name == "" {
		name = defaultMetadataName
	}
	body, err := json.Marshal(struct {
		Content  json.RawMessage   `json:"pinataContent"`
		Metadata map[string]string `json:"pinataMetadata"`
	}{document, map[string]string{"name": name}})
	if err != nil {
		return nil, fmt.Errorf("encode pin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.pin(req)
}

func (c *Client) pin(req *http.Request) (*PinResult, error) {
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(req.Context(), "pinata rejected upload",
			"status", resp.StatusCode,
			"path", req.URL.Path,
		)
		return nil, &UploadError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out PinResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode pinata response: %w", err)
	}
	return &out, nil
}

// URL resolves a fingerprint. A gateway value containing a dot is a
// dedicated gateway host; anything else is a gateway access token.
func (c *Client) URL(fingerprint string) string {
	if strings.Contains(c.gateway, ".") {
		return "https://" + c.gateway + "/ipfs/" + fingerprint
	}
	if c.gateway == "" {
		return "https://" + defaultGatewayHost + "/ipfs/" + fingerprint
	}
	return "https://" + defaultGatewayHost + "/ipfs/" + fingerprint + "?pinataGatewayToken=" + url.QueryEscape(c.gateway)
}

// FetchJSON downloads a pinned JSON document through the gateway.
func (c *Client) FetchJSON(ctx context.Context, fingerprint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(fingerprint), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch from ipfs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch from ipfs: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
