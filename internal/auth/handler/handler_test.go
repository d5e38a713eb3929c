package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/auth/nonce"
	"landledger/internal/auth/service"
	jwttoken "landledger/internal/jwt_token"
	"landledger/pkg/testutil"
)

type noRegistrars struct{}

func (noRegistrars) IsRegistrar(context.Context, string) (bool, error) { return false, nil }

func newAuthRouter(t *testing.T) (http.Handler, *jwttoken.JWTService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwttoken.NewJWTService("test-key", "landledger")
	svc, err := service.New(nonce.NewInMemoryStore(), tokens, noRegistrars{}, 15*time.Minute, service.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r, tokens
}

func TestWalletLoginFlow(t *testing.T) {
	router, tokens := newAuthRouter(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/nonce?address="+address))
	testutil.AssertStatusOK(t, rr)
	challenge := testutil.UnmarshalResponse[NonceResponse](t, rr)
	assert.Equal(t, strings.ToLower(address), challenge.Address)

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"address":   address,
		"signature": hexutil.Encode(sig),
	}))
	testutil.AssertStatusOK(t, rr)
	login := testutil.UnmarshalResponse[LoginResponse](t, rr)
	assert.Equal(t, "Bearer", login.TokenType)
	assert.Equal(t, int64(900), login.ExpiresIn)
	assert.False(t, login.Registrar)

	claims, err := tokens.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(address), claims.Subject)
}

func TestNonceValidation(t *testing.T) {
	router, _ := newAuthRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/nonce"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/nonce?address=not-an-address"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestLoginValidation(t *testing.T) {
	router, _ := newAuthRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/auth/login", ""))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"address": "0xabc0000000000000000000000000000000000001",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"address":   "0xabc0000000000000000000000000000000000001",
		"signature": "0x" + strings.Repeat("11", 65),
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}
