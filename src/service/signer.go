package service

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/0xfable/paymaster/src/domain"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerService holds the sponsorship key for the process lifetime. The key
// is never logged and never leaves this service.
type SignerService struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func NewSignerService(privateKeyHex string) (*SignerService, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &SignerService{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the address the verifier recovers from authorization
// signatures.
func (s *SignerService) Address() common.Address { return s.address }

// Sign wraps the digest in the EIP-191 "Ethereum Signed Message" prefix hash
// before signing; the verifier's ECDSA.recover expects the prefixed digest,
// never the raw one. Returns the 65-byte (r, s, v) encoding with v in {27, 28}.
func (s *SignerService) Sign(digest common.Hash) ([]byte, error) {
	prefixed := accounts.TextHash(digest.Bytes())

	signature, err := crypto.Sign(prefixed, s.privateKey)
	if err != nil {
		return nil, domain.NewError(
			domain.ErrorCodeSigningFailed,
			err,
			domain.WithMsg("authorization signing failed"),
		)
	}

	// crypto.Sign yields the recovery id as 0/1; the verifier expects the
	// pre-EIP-155 27/28 convention.
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}
