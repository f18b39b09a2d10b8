package service

import (
	"fmt"
	"math/big"

	"github.com/0xfable/paymaster/src/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// paymasterAndData layout parsed by the on-chain verifier:
// paymaster address (20) || abi(uint48 validUntil, uint48 validAfter) (64) || signature (65).
const (
	windowOffset           = common.AddressLength
	signatureOffset        = windowOffset + 64
	SignatureLength        = 65
	PaymasterAndDataLength = signatureOffset + SignatureLength
)

// packValidityWindow ABI-encodes the window as two static uint48 parameters,
// each left-zero-padded to a 32-byte word.
func packValidityWindow(window domain.ValidityWindow) ([]byte, error) {
	uint48Type, err := abi.NewType("uint48", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: uint48Type}, {Type: uint48Type}}
	return args.Pack(
		new(big.Int).SetUint64(window.ValidUntil),
		new(big.Int).SetUint64(window.ValidAfter),
	)
}

// EncodePaymasterAndData produces the 149-byte authorization blob embedded in
// the sponsored operation.
func EncodePaymasterAndData(paymaster common.Address, window domain.ValidityWindow, signature []byte) ([]byte, error) {
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(signature))
	}

	windowBytes, err := packValidityWindow(window)
	if err != nil {
		return nil, fmt.Errorf("failed to encode validity window: %w", err)
	}

	out := make([]byte, 0, PaymasterAndDataLength)
	out = append(out, paymaster.Bytes()...)
	out = append(out, windowBytes...)
	out = append(out, signature...)
	return out, nil
}

// DecodePaymasterAndData is the inverse of EncodePaymasterAndData.
func DecodePaymasterAndData(data []byte) (common.Address, domain.ValidityWindow, []byte, error) {
	if len(data) != PaymasterAndDataLength {
		return common.Address{}, domain.ValidityWindow{}, nil,
			fmt.Errorf("paymasterAndData must be %d bytes, got %d", PaymasterAndDataLength, len(data))
	}

	paymaster := common.BytesToAddress(data[:windowOffset])
	validUntil := new(big.Int).SetBytes(data[windowOffset : windowOffset+32])
	validAfter := new(big.Int).SetBytes(data[windowOffset+32 : signatureOffset])
	if !validUntil.IsUint64() || !validAfter.IsUint64() {
		return common.Address{}, domain.ValidityWindow{}, nil,
			fmt.Errorf("validity window out of range")
	}

	window := domain.ValidityWindow{
		ValidAfter: validAfter.Uint64(),
		ValidUntil: validUntil.Uint64(),
	}
	signature := append([]byte(nil), data[signatureOffset:]...)
	return paymaster, window, signature, nil
}
