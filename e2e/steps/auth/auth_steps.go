package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POST(path string, body any) error
	POSTAdmin(path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	CreateWallet(name string) (string, error)
	WalletAddress(name string) (string, error)
	Sign(name string, digest []byte) ([]byte, error)
	SetAccessToken(name, token string) error
}

// RegisterSteps registers wallet sign-in step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^a new wallet "([^"]*)"$`, steps.newWallet)
	ctx.Step(`^the wallet "([^"]*)" is a registrar$`, steps.makeRegistrar)
	ctx.Step(`^the wallet "([^"]*)" signs in$`, steps.signIn)
	ctx.Step(`^the wallet "([^"]*)" requests a sign-in nonce$`, steps.requestNonce)
	ctx.Step(`^the wallet "([^"]*)" logs in with a signature from "([^"]*)"$`, steps.loginSignedBy)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) newWallet(ctx context.Context, name string) error {
	_, err := s.tc.CreateWallet(name)
	return err
}

func (s *authSteps) makeRegistrar(ctx context.Context, name string) error {
	address, err := s.tc.WalletAddress(name)
	if err != nil {
		return err
	}
	if err := s.tc.POSTAdmin("/admin/registrars", map[string]any{"address": address}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("adding registrar: status %d: %s", status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *authSteps) requestNonce(ctx context.Context, name string) error {
	address, err := s.tc.WalletAddress(name)
	if err != nil {
		return err
	}
	return s.tc.GET("/auth/nonce?address="+url.QueryEscape(address), nil)
}

// loginSignedBy signs the challenge from the last nonce response with
// signer's key and submits it on behalf of name.
func (s *authSteps) loginSignedBy(ctx context.Context, name, signer string) error {
	address, err := s.tc.WalletAddress(name)
	if err != nil {
		return err
	}
	message, err := s.tc.GetResponseField("message")
	if err != nil {
		return err
	}
	sig, err := s.tc.Sign(signer, accounts.TextHash([]byte(fmt.Sprint(message))))
	if err != nil {
		return err
	}
	sig[crypto.RecoveryIDOffset] += 27

	return s.tc.POST("/auth/login", map[string]any{
		"address":   address,
		"signature": hexutil.Encode(sig),
	})
}

func (s *authSteps) signIn(ctx context.Context, name string) error {
	if err := s.requestNonce(ctx, name); err != nil {
		return err
	}
	if err := s.loginSignedBy(ctx, name, name); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("sign in: status %d: %s", status, s.tc.GetLastResponseBody())
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	return s.tc.SetAccessToken(name, fmt.Sprint(token))
}
