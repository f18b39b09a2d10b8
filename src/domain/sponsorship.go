package domain

import (
	"fmt"
	"strings"
)

// maxUint48 bounds the validity timestamps; the on-chain verifier reads them
// as uint48.
const maxUint48 = (uint64(1) << 48) - 1

// DefaultValiditySeconds is the sponsorship window applied when none is
// configured.
const DefaultValiditySeconds uint32 = 300

// ValidityWindow is the half-open interval during which a sponsorship
// signature is accepted on chain.
type ValidityWindow struct {
	ValidAfter uint64
	ValidUntil uint64
}

// NewValidityWindow derives the window from the reference chain timestamp.
// Values that do not fit in 48 bits are a configuration error and are
// rejected rather than truncated.
func NewValidityWindow(referenceTimestamp uint64, validitySeconds uint32) (ValidityWindow, error) {
	validUntil := referenceTimestamp + uint64(validitySeconds)
	if referenceTimestamp > maxUint48 || validUntil > maxUint48 {
		return ValidityWindow{}, fmt.Errorf("validity window [%d, %d) exceeds uint48 range", referenceTimestamp, validUntil)
	}
	if validUntil <= referenceTimestamp {
		return ValidityWindow{}, fmt.Errorf("validUntil %d must be greater than validAfter %d", validUntil, referenceTimestamp)
	}
	return ValidityWindow{ValidAfter: referenceTimestamp, ValidUntil: validUntil}, nil
}

// SponsorshipDecision is the outcome of the admission policy.
type SponsorshipDecision struct {
	Granted bool
}

// WhitelistConfig is the set of senders eligible for sponsorship. Built once
// at startup and read-only afterwards.
type WhitelistConfig struct {
	AllowAll  bool
	addresses map[string]struct{}
}

// NewWhitelistConfig normalizes the configured addresses to lowercase so
// membership checks are case-insensitive.
func NewWhitelistConfig(allowAll bool, addresses []string) WhitelistConfig {
	set := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr != "" {
			set[addr] = struct{}{}
		}
	}
	return WhitelistConfig{AllowAll: allowAll, addresses: set}
}

// Contains reports whether the address is whitelisted, ignoring case.
func (w WhitelistConfig) Contains(address string) bool {
	_, ok := w.addresses[strings.ToLower(address)]
	return ok
}

// Size returns the number of configured addresses.
func (w WhitelistConfig) Size() int { return len(w.addresses) }
