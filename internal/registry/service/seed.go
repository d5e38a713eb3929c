package service

import (
	"context"

	"landledger/internal/registry/models"
	dErrors "landledger/pkg/domain-errors"
)

var demoProperties = []models.RegistrationInput{
	{
		OwnerAddress: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		OwnerName:    "Rahul Sharma",
		IPFSHash:     "QmYwAPJzv5CZsnANH5Qz9rM1gXf8vG8X8Z3Zq7q1qYrK1a",
		Location:     "123 Main Street, Mumbai, Maharashtra 400001",
		Area:         1500,
		PropertyType: "Residential",
		SurveyNumber: "MUM/123/A",
	},
	{
		OwnerAddress: "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		OwnerName:    "Priya Patel",
		IPFSHash:     "QmZk3F7v5CZsnANH5Qz9rM1gXf8vG8X8Z3Zq7q1qYrK2b",
		Location:     "456 Park Avenue, Pune, Maharashtra 411001",
		Area:         2500,
		PropertyType: "Commercial",
		SurveyNumber: "PUN/456/B",
	},
	{
		OwnerAddress: "0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326",
		OwnerName:    "Amit Singh",
		IPFSHash:     "QmWk4G8v5CZsnANH5Qz9rM1gXf8vG8X8Z3Zq7q1qYrK3c",
		Location:     "789 Farm Road, Nashik, Maharashtra 422001",
		Area:         5000,
		PropertyType: "Agricultural",
		SurveyNumber: "NAS/789/C",
	},
}

const demoDisputeReason = "Boundary dispute under review"

// SeedDemoProperties registers PROP001-PROP003 on an empty registry and
// blocks PROP003. It does nothing when any property exists.
func (s *Service) SeedDemoProperties(ctx context.Context) error {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to inspect registry")
	}
	if stats.TotalProperties > 0 {
		return nil
	}

	var last *models.Property
	for _, in := range demoProperties {
		p, err := s.register(ctx, SystemActor, in)
		if err != nil {
			return err
		}
		last = p
	}
	if _, err := s.block(ctx, SystemActor, last.ID, demoDisputeReason); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "demo properties seeded", "count", len(demoProperties))
	}
	return nil
}
