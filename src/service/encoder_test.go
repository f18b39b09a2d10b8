package service

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/0xfable/paymaster/src/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPaymaster = common.HexToAddress("0x9876543210987654321098765432109876543210")

func testWindow(t *testing.T) domain.ValidityWindow {
	t.Helper()
	window, err := domain.NewValidityWindow(1700000000, 300)
	require.NoError(t, err)
	return window
}

func TestEncodePaymasterAndDataLayout(t *testing.T) {
	signature := bytes.Repeat([]byte{0x11}, SignatureLength)
	window := testWindow(t)

	data, err := EncodePaymasterAndData(testPaymaster, window, signature)
	require.NoError(t, err)
	require.Len(t, data, PaymasterAndDataLength)
	assert.Equal(t, 149, PaymasterAndDataLength)

	// paymaster address first
	assert.Equal(t, testPaymaster.Bytes(), data[:20])

	// then two left-zero-padded 32-byte words: validUntil, validAfter
	validUntil := new(big.Int).SetBytes(data[20:52])
	validAfter := new(big.Int).SetBytes(data[52:84])
	assert.Equal(t, window.ValidUntil, validUntil.Uint64())
	assert.Equal(t, window.ValidAfter, validAfter.Uint64())

	// big-endian value in the low bytes, zero padding in the high bytes
	assert.Equal(t, make([]byte, 26), data[20:46])

	// signature last
	assert.Equal(t, signature, data[84:])
}

func TestEncodePaymasterAndDataRejectsBadSignature(t *testing.T) {
	window := testWindow(t)

	_, err := EncodePaymasterAndData(testPaymaster, window, make([]byte, 64))
	assert.Error(t, err)

	_, err = EncodePaymasterAndData(testPaymaster, window, make([]byte, 66))
	assert.Error(t, err)
}

func TestDecodePaymasterAndDataRoundTrip(t *testing.T) {
	signature := bytes.Repeat([]byte{0x22}, SignatureLength)
	window := testWindow(t)

	data, err := EncodePaymasterAndData(testPaymaster, window, signature)
	require.NoError(t, err)

	gotPaymaster, gotWindow, gotSignature, err := DecodePaymasterAndData(data)
	require.NoError(t, err)
	assert.Equal(t, testPaymaster, gotPaymaster)
	assert.Equal(t, window, gotWindow)
	assert.Equal(t, signature, gotSignature)
	assert.Equal(t, uint64(300), gotWindow.ValidUntil-gotWindow.ValidAfter)
}

func TestDecodePaymasterAndDataRejectsBadLength(t *testing.T) {
	_, _, _, err := DecodePaymasterAndData(make([]byte, 148))
	assert.Error(t, err)

	_, _, _, err = DecodePaymasterAndData(nil)
	assert.Error(t, err)
}
