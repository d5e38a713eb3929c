// Package service implements wallet sign-in: a one-time nonce is signed with
// personal_sign (EIP-191) and exchanged for a bearer token.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"landledger/internal/auth/nonce"
	"landledger/internal/platform/middleware"
	"landledger/internal/registry/models"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
)

const (
	messagePrefix   = "Sign in to landledger: "
	defaultNonceTTL = 5 * time.Minute
)

// TokenIssuer mints bearer tokens for an authenticated address.
type TokenIssuer interface {
	GenerateAccessToken(address string, registrar bool, expiresIn time.Duration) (string, error)
}

// RegistrarChecker fills the registrar hint claim.
type RegistrarChecker interface {
	IsRegistrar(ctx context.Context, address string) (bool, error)
}

type Challenge struct {
	Address   string
	Nonce     string
	Message   string
	ExpiresAt time.Time
}

type Session struct {
	Address     string
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	Registrar   bool
}

type Service struct {
	nonces     nonce.Store
	tokens     TokenIssuer
	registrars RegistrarChecker
	tokenTTL   time.Duration
	nonceTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNonceTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.nonceTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(nonces nonce.Store, tokens TokenIssuer, registrars RegistrarChecker, tokenTTL time.Duration, opts ...Option) (*Service, error) {
	if nonces == nil {
		return nil, errors.New("nonce store is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if registrars == nil {
		return nil, errors.New("registrar checker is required")
	}
	s := &Service{
		nonces:     nonces,
		tokens:     tokens,
		registrars: registrars,
		tokenTTL:   tokenTTL,
		nonceTTL:   defaultNonceTTL,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignInMessage is the exact text the wallet signs.
func SignInMessage(nonce string) string {
	return messagePrefix + nonce
}

// IssueNonce replaces any outstanding challenge for the address.
func (s *Service) IssueNonce(ctx context.Context, address string) (*Challenge, error) {
	addr, err := models.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	n := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.nonces.Put(ctx, addr, n, s.nonceTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store nonce")
	}
	return &Challenge{
		Address:   addr,
		Nonce:     n,
		Message:   SignInMessage(n),
		ExpiresAt: s.now().Add(s.nonceTTL),
	}, nil
}

// Login verifies the signature over the outstanding nonce. The nonce is
// consumed whether or not the signature matches.
func (s *Service) Login(ctx context.Context, address, signature string) (*Session, error) {
	addr, err := models.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	sig, err := decodeSignature(signature)
	if err != nil {
		return nil, err
	}

	n, err := s.nonces.Consume(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no pending sign-in challenge")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load nonce")
	}

	signer, err := RecoverSigner(SignInMessage(n), sig)
	if err != nil || !models.SameAddress(signer, addr) {
		s.logger.WarnContext(ctx, "wallet signature rejected",
			"request_id", middleware.GetRequestID(ctx),
			"address", addr,
		)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signature does not match address")
	}

	registrar, err := s.registrars.IsRegistrar(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registrar")
	}
	token, err := s.tokens.GenerateAccessToken(addr, registrar, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logger.InfoContext(ctx, "wallet_login",
		"request_id", middleware.GetRequestID(ctx),
		"address", addr,
		"registrar", registrar,
		"log_type", "audit",
	)
	return &Session{
		Address:     addr,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.tokenTTL,
		Registrar:   registrar,
	}, nil
}

func decodeSignature(raw string) ([]byte, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(raw))
	if err != nil || len(sig) != crypto.SignatureLength {
		return nil, dErrors.New(dErrors.CodeValidation, "signature must be 65 hex-encoded bytes")
	}
	return sig, nil
}

// RecoverSigner returns the lowercase address that produced an EIP-191
// personal_sign signature over message. Wallets send v as 27/28.
func RecoverSigner(message string, sig []byte) (string, error) {
	if len(sig) != crypto.SignatureLength {
		return "", errors.New("invalid signature length")
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), normalized)
	if err != nil {
		return "", err
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}
