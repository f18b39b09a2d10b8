package service

import (
	"github.com/0xfable/paymaster/src/domain"
	"github.com/ethereum/go-ethereum/common"
)

// WhitelistPolicy gates sponsorship on the configured sender whitelist.
type WhitelistPolicy struct {
	config domain.WhitelistConfig
}

func NewWhitelistPolicy(config domain.WhitelistConfig) *WhitelistPolicy {
	return &WhitelistPolicy{config: config}
}

// Decide grants sponsorship iff the policy allows all senders or the sender
// is whitelisted. Pure and total: no I/O, no errors for any address.
func (p *WhitelistPolicy) Decide(sender common.Address) domain.SponsorshipDecision {
	if p.config.AllowAll {
		return domain.SponsorshipDecision{Granted: true}
	}
	return domain.SponsorshipDecision{Granted: p.config.Contains(sender.Hex())}
}
