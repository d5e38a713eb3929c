// Package nonce stores one-time wallet login challenges.
//
// Error contract: Consume returns sentinel.ErrNotFound when no live nonce
// exists for the address. A nonce can be consumed at most once.
package nonce

import (
	"context"
	"fmt"
	"time"

	"landledger/pkg/platform/sentinel"
)

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// Store is implemented by the Redis and in-memory stores.
type Store interface {
	Put(ctx context.Context, address, nonce string, ttl time.Duration) error
	Consume(ctx context.Context, address string) (string, error)
}
