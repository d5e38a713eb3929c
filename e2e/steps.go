package e2e

import (
	"github.com/cucumber/godog"

	"landledger/e2e/steps/auth"
	"landledger/e2e/steps/common"
	"landledger/e2e/steps/ratelimit"
	"landledger/e2e/steps/registry"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register wallet sign-in steps
	auth.RegisterSteps(ctx, tc)

	// Register property and transfer steps
	registry.RegisterSteps(ctx, tc)

	// Register rate limiting steps
	ratelimit.RegisterSteps(ctx, tc)
}
