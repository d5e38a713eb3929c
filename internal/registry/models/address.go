package models

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "landledger/pkg/domain-errors"
)

// NormalizeAddress validates a 0x-prefixed account address and lowercases it.
func NormalizeAddress(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if !strings.HasPrefix(v, "0x") && !strings.HasPrefix(v, "0X") {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid address %q", raw)
	}
	if !common.IsHexAddress(v) {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid address %q", raw)
	}
	return strings.ToLower(v), nil
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
