package service

import (
	"context"

	"github.com/0xfable/paymaster/erc4337"
	"github.com/0xfable/paymaster/src/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
)

// SponsorResult carries the (possibly updated) operation plus an explicit
// decline indicator. The wire contract signals decline solely through an
// unchanged paymasterAndData field; Declined and Reason exist for logging
// and observability only.
type SponsorResult struct {
	Operation erc4337.UserOperation
	Declined  bool
	Reason    string
}

// SponsorService runs the sponsorship pipeline: admission policy, validity
// window from the latest chain timestamp, verifier digest, EIP-191 signature
// and the paymasterAndData encoding. Requests are independent; the only
// shared state is read-only configuration and the signing key.
type SponsorService struct {
	policy          *WhitelistPolicy
	chain           ChainReader
	digests         DigestSource
	signer          *SignerService
	quota           QuotaChecker
	paymaster       common.Address
	validitySeconds uint32
}

func NewSponsorService(
	policy *WhitelistPolicy,
	chain ChainReader,
	digests DigestSource,
	signer *SignerService,
	quota QuotaChecker,
	paymaster common.Address,
	validitySeconds uint32,
) *SponsorService {
	if validitySeconds == 0 {
		validitySeconds = domain.DefaultValiditySeconds
	}
	return &SponsorService{
		policy:          policy,
		chain:           chain,
		digests:         digests,
		signer:          signer,
		quota:           quota,
		paymaster:       paymaster,
		validitySeconds: validitySeconds,
	}
}

// logger wraps the request context with component info
func (s *SponsorService) logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx).With().Str("service", "sponsor").Logger()
	return &l
}

// SponsorUserOperation decides whether to underwrite the operation and, if
// granted, returns a copy with paymasterAndData carrying the authorization.
// Declined operations are returned byte-identical to the input. A failure at
// any step aborts the attempt with no partial mutation; nothing is retried.
func (s *SponsorService) SponsorUserOperation(ctx context.Context, op erc4337.UserOperation) (*SponsorResult, error) {
	sender := op.GetSender()

	if decision := s.policy.Decide(sender); !decision.Granted {
		s.logger(ctx).Info().
			Str("sender", sender.Hex()).
			Msg("sponsorship declined by whitelist policy")
		return &SponsorResult{Operation: op, Declined: true, Reason: "sender not whitelisted"}, nil
	}

	if s.quota != nil {
		allowed, err := s.quota.Allow(ctx, sender)
		if err != nil {
			return nil, domain.NewError(domain.ErrorCodeInternalProcess, err)
		}
		if !allowed {
			s.logger(ctx).Info().
				Str("sender", sender.Hex()).
				Msg("sponsorship declined, daily quota exhausted")
			return &SponsorResult{Operation: op, Declined: true, Reason: "daily sponsorship quota exhausted"}, nil
		}
	}

	timestamp, err := s.chain.LatestBlockTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	window, err := domain.NewValidityWindow(timestamp, s.validitySeconds)
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeInternalProcess, err)
	}

	digest, err := s.digests.Digest(ctx, op, window)
	if err != nil {
		return nil, err
	}

	signature, err := s.signer.Sign(digest)
	if err != nil {
		return nil, err
	}

	paymasterAndData, err := EncodePaymasterAndData(s.paymaster, window, signature)
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeInternalProcess, err)
	}

	s.logger(ctx).Debug().
		Str("sender", sender.Hex()).
		Uint64("valid_after", window.ValidAfter).
		Uint64("valid_until", window.ValidUntil).
		Str("paymaster_and_data", hexutil.Encode(paymasterAndData)).
		Msg("operation sponsored")

	return &SponsorResult{Operation: op.WithPaymasterAndData(paymasterAndData)}, nil
}
