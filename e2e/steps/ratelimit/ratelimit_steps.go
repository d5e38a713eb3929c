package ratelimit

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastResponseHeader(key string) string
	WalletAddress(name string) (string, error)
}

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^"([^"]*)" requests sign-in nonces from IP "([^"]*)" until rejected, at most (\d+) times$`, steps.hammerNonce)
	ctx.Step(`^the request should have been rejected with 429$`, steps.shouldBeRejected)
	ctx.Step(`^the response should carry a Retry-After header$`, steps.retryAfterPresent)
}

type ratelimitSteps struct {
	tc       TestContext
	rejected bool
}

func (s *ratelimitSteps) hammerNonce(ctx context.Context, wallet, ip string, attempts int) error {
	address, err := s.tc.WalletAddress(wallet)
	if err != nil {
		return err
	}
	path := "/auth/nonce?address=" + url.QueryEscape(address)
	for range attempts {
		if err := s.tc.GET(path, map[string]string{"X-Forwarded-For": ip}); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == 429 {
			s.rejected = true
			return nil
		}
	}
	return nil
}

func (s *ratelimitSteps) shouldBeRejected(ctx context.Context) error {
	if !s.rejected {
		return fmt.Errorf("expected a 429 before running out of attempts, last status %d", s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) retryAfterPresent(ctx context.Context) error {
	if s.tc.GetLastResponseHeader("Retry-After") == "" {
		return fmt.Errorf("missing Retry-After header: %s", s.tc.GetLastResponseBody())
	}
	return nil
}
