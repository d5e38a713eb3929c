// Package e2e drives a running landledger server through its HTTP API with
// godog scenarios. Point E2E_BASE_URL at the server and E2E_ADMIN_TOKEN at
// its ADMIN_API_TOKEN.
package e2e

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// wallet is a throwaway signing key plus the bearer token it signed in with.
type wallet struct {
	key         *ecdsa.PrivateKey
	address     string
	accessToken string
}

// TestContext carries per-scenario state shared by all step packages.
type TestContext struct {
	BaseURL    string
	AdminToken string
	HTTPClient *http.Client

	// clientIP is sent as X-Forwarded-For so scenarios get separate rate limit budgets.
	clientIP string

	lastStatus int
	lastBody   []byte
	lastHeader http.Header

	wallets map[string]*wallet
	saved   map[string]string
}

func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    envOr("E2E_BASE_URL", "http://localhost:8080"),
		AdminToken: os.Getenv("E2E_ADMIN_TOKEN"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Reset clears state between scenarios.
func (tc *TestContext) Reset() {
	tc.clientIP = fmt.Sprintf("10.%d.%d.%d", rand.IntN(256), rand.IntN(256), 1+rand.IntN(254))
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
	tc.wallets = map[string]*wallet{}
	tc.saved = map[string]string{}
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, nil)
}

// POSTAs sends body with the named wallet's bearer token.
func (tc *TestContext) POSTAs(wallet, path string, body any) error {
	w, err := tc.wallet(wallet)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, body, map[string]string{"Authorization": "Bearer " + w.accessToken})
}

// POSTAdmin sends body with the admin token header.
func (tc *TestContext) POSTAdmin(path string, body any) error {
	return tc.do(http.MethodPost, path, body, map[string]string{"X-Admin-Token": tc.AdminToken})
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Forwarded-For", tc.clientIP)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastResponseStatus() int  { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

func (tc *TestContext) GetLastResponseHeader(k string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(k)
}

// GetResponseField reads a top-level field of the last JSON object response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w (body: %s)", err, tc.lastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}

// CreateWallet generates and remembers a fresh key under name.
func (tc *TestContext) CreateWallet(name string) (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	w := &wallet{
		key:     key,
		address: strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}
	tc.wallets[name] = w
	return w.address, nil
}

func (tc *TestContext) WalletAddress(name string) (string, error) {
	w, err := tc.wallet(name)
	if err != nil {
		return "", err
	}
	return w.address, nil
}

// Sign signs a 32-byte digest with the named wallet's key.
func (tc *TestContext) Sign(name string, digest []byte) ([]byte, error) {
	w, err := tc.wallet(name)
	if err != nil {
		return nil, err
	}
	return crypto.Sign(digest, w.key)
}

func (tc *TestContext) SetAccessToken(name, token string) error {
	w, err := tc.wallet(name)
	if err != nil {
		return err
	}
	w.accessToken = token
	return nil
}

func (tc *TestContext) wallet(name string) (*wallet, error) {
	w, ok := tc.wallets[name]
	if !ok {
		return nil, fmt.Errorf("no wallet named %q in this scenario", name)
	}
	return w, nil
}

func (tc *TestContext) Save(key, value string) { tc.saved[key] = value }

func (tc *TestContext) Saved(key string) (string, error) {
	v, ok := tc.saved[key]
	if !ok {
		return "", fmt.Errorf("nothing saved as %q", key)
	}
	return v, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
