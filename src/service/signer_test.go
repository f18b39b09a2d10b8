package service

import (
	"testing"

	"github.com/0xfable/paymaster/src/domain"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Throwaway key used across the service tests.
const testPrivateKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSignerServiceAddress(t *testing.T) {
	signer, err := NewSignerService(testPrivateKeyHex)
	require.NoError(t, err)

	key, err := crypto.HexToECDSA(testPrivateKeyHex)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())
}

func TestNewSignerServiceTrims0xPrefix(t *testing.T) {
	plain, err := NewSignerService(testPrivateKeyHex)
	require.NoError(t, err)

	prefixed, err := NewSignerService("0x" + testPrivateKeyHex)
	require.NoError(t, err)
	assert.Equal(t, plain.Address(), prefixed.Address())
}

func TestNewSignerServiceRejectsGarbage(t *testing.T) {
	_, err := NewSignerService("not-a-key")
	assert.Error(t, err)
}

func TestSignProducesRecoverableSignature(t *testing.T) {
	signer, err := NewSignerService(testPrivateKeyHex)
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("sponsorship digest"))
	signature, err := signer.Sign(digest)
	require.NoError(t, err)
	require.Len(t, signature, SignatureLength)

	// v must use the 27/28 convention the verifier expects
	v := signature[crypto.RecoveryIDOffset]
	assert.Contains(t, []byte{27, 28}, v)

	// The verifier recovers over the EIP-191 prefixed digest, not the raw one
	recoverSig := append([]byte(nil), signature...)
	recoverSig[crypto.RecoveryIDOffset] -= 27

	pubkey, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), recoverSig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pubkey))

	// Recovery over the raw digest must NOT yield the signer: proves the
	// prefix wrap is applied before signing.
	rawPubkey, err := crypto.SigToPub(digest.Bytes(), recoverSig)
	if err == nil {
		assert.NotEqual(t, signer.Address(), crypto.PubkeyToAddress(*rawPubkey))
	}
}

func TestSignDeterministicForSameDigest(t *testing.T) {
	signer, err := NewSignerService(testPrivateKeyHex)
	require.NoError(t, err)

	digest := common.HexToHash("0x0101010101010101010101010101010101010101010101010101010101010101")

	first, err := signer.Sign(digest)
	require.NoError(t, err)
	second, err := signer.Sign(digest)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSignErrorsAreSigningFailed(t *testing.T) {
	// A DomainError of kind SIGNING_FAILED is what the signer wraps primitive
	// failures in; validate the mapping on the error type itself.
	err := domain.NewError(domain.ErrorCodeSigningFailed, assert.AnError)
	assert.Equal(t, "SIGNING_FAILED", err.Name())
	assert.Equal(t, -32002, err.RPCCode())
}
