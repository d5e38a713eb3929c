package registry

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POSTAs(wallet, path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	WalletAddress(name string) (string, error)
	Save(key, value string)
	Saved(key string) (string, error)
}

// RegisterSteps registers property and transfer step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrySteps{tc: tc}

	ctx.Step(`^"([^"]*)" registers a (\w+) property in "([^"]*)" of (\d+) sq ft owned by "([^"]*)"$`, steps.registerProperty)
	ctx.Step(`^"([^"]*)" blocks the property because "([^"]*)"$`, steps.blockProperty)
	ctx.Step(`^"([^"]*)" unblocks the property$`, steps.unblockProperty)
	ctx.Step(`^"([^"]*)" offers the property to "([^"]*)" for (\d+) wei$`, steps.initiateTransfer)
	ctx.Step(`^"([^"]*)" approves the transfer$`, steps.approveTransfer)
	ctx.Step(`^"([^"]*)" completes the transfer paying (\d+) wei$`, steps.completeTransfer)
	ctx.Step(`^the property owner should be "([^"]*)"$`, steps.ownerShouldBe)
}

type registrySteps struct {
	tc TestContext
}

func (s *registrySteps) expect(status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *registrySteps) savedPath(key, format string) (string, error) {
	id, err := s.tc.Saved(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, id), nil
}

func (s *registrySteps) registerProperty(ctx context.Context, registrar, propertyType, location string, area int, owner string) error {
	ownerAddress, err := s.tc.WalletAddress(owner)
	if err != nil {
		return err
	}
	err = s.tc.POSTAs(registrar, "/properties", map[string]any{
		"owner_address": ownerAddress,
		"ipfs_hash":     "QmE2eDeedDocument",
		"location":      location,
		"area":          area,
		"property_type": propertyType,
	})
	if err != nil {
		return err
	}
	if err := s.expect(201); err != nil {
		return err
	}
	id, err := s.tc.GetResponseField("property_id")
	if err != nil {
		return err
	}
	s.tc.Save("property", fmt.Sprint(id))
	return nil
}

func (s *registrySteps) blockProperty(ctx context.Context, registrar, reason string) error {
	path, err := s.savedPath("property", "/properties/%s/block")
	if err != nil {
		return err
	}
	return s.tc.POSTAs(registrar, path, map[string]any{"reason": reason})
}

func (s *registrySteps) unblockProperty(ctx context.Context, registrar string) error {
	path, err := s.savedPath("property", "/properties/%s/unblock")
	if err != nil {
		return err
	}
	return s.tc.POSTAs(registrar, path, nil)
}

func (s *registrySteps) initiateTransfer(ctx context.Context, seller, buyer string, price int64) error {
	buyerAddress, err := s.tc.WalletAddress(buyer)
	if err != nil {
		return err
	}
	path, err := s.savedPath("property", "/properties/%s/transfers")
	if err != nil {
		return err
	}
	err = s.tc.POSTAs(seller, path, map[string]any{
		"buyer": buyerAddress,
		"price": fmt.Sprint(price),
	})
	if err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return nil
	}
	id, err := s.tc.GetResponseField("transfer_id")
	if err != nil {
		return err
	}
	s.tc.Save("transfer", fmt.Sprint(id))
	return nil
}

func (s *registrySteps) approveTransfer(ctx context.Context, registrar string) error {
	path, err := s.savedPath("transfer", "/transfers/%s/approve")
	if err != nil {
		return err
	}
	return s.tc.POSTAs(registrar, path, nil)
}

func (s *registrySteps) completeTransfer(ctx context.Context, buyer string, payment int64) error {
	path, err := s.savedPath("transfer", "/transfers/%s/complete")
	if err != nil {
		return err
	}
	return s.tc.POSTAs(buyer, path, map[string]any{"payment": fmt.Sprint(payment)})
}

func (s *registrySteps) ownerShouldBe(ctx context.Context, owner string) error {
	want, err := s.tc.WalletAddress(owner)
	if err != nil {
		return err
	}
	path, err := s.savedPath("property", "/properties/%s")
	if err != nil {
		return err
	}
	if err := s.tc.GET(path, nil); err != nil {
		return err
	}
	if err := s.expect(200); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("owner_address")
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected owner %s, got %v", want, got)
	}
	return nil
}
