package erc4337

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPackedOp() *PackedUserOperation {
	return &PackedUserOperation{
		Sender:             common.HexToAddress("0x1234567890123456789012345678901234567890"),
		Nonce:              (*hexutil.Big)(big.NewInt(1)),
		CallData:           hexutil.Bytes{0xab, 0xcd, 0xef},
		AccountGasLimits:   make(hexutil.Bytes, 32),
		PreVerificationGas: (*hexutil.Big)(big.NewInt(21000)),
		GasFees:            make(hexutil.Bytes, 32),
		Signature:          hexutil.Bytes{0x01, 0x02},
	}
}

func TestWithPaymasterAndDataReturnsCopy(t *testing.T) {
	op := newTestPackedOp()

	updated := op.WithPaymasterAndData([]byte{0xde, 0xad})

	// The original is untouched
	assert.Empty(t, op.PaymasterAndData)

	packed, ok := updated.(*PackedUserOperation)
	require.True(t, ok)
	assert.Equal(t, hexutil.Bytes{0xde, 0xad}, packed.PaymasterAndData)

	// The user-held signature survives the copy unchanged
	assert.Equal(t, op.Signature, packed.Signature)
	assert.Equal(t, op.Sender, packed.GetSender())
}

func TestWithPaymasterAndDataLegacy(t *testing.T) {
	op := &LegacyUserOperation{
		Sender:           common.HexToAddress("0x1234567890123456789012345678901234567890"),
		PaymasterAndData: hexutil.Bytes{0x01},
		Signature:        hexutil.Bytes{0xff},
	}

	updated := op.WithPaymasterAndData([]byte{0xbe, 0xef})

	assert.Equal(t, hexutil.Bytes{0x01}, op.PaymasterAndData)

	legacy, ok := updated.(*LegacyUserOperation)
	require.True(t, ok)
	assert.Equal(t, hexutil.Bytes{0xbe, 0xef}, legacy.PaymasterAndData)
	assert.Equal(t, hexutil.Bytes{0xff}, legacy.Signature)
}

func TestPackedValidate(t *testing.T) {
	op := newTestPackedOp()
	require.NoError(t, op.Validate())

	short := newTestPackedOp()
	short.AccountGasLimits = make(hexutil.Bytes, 31)
	assert.Error(t, short.Validate())

	long := newTestPackedOp()
	long.GasFees = make(hexutil.Bytes, 33)
	assert.Error(t, long.Validate())

	noNonce := newTestPackedOp()
	noNonce.Nonce = nil
	assert.Error(t, noNonce.Validate())
}

func TestLegacyValidate(t *testing.T) {
	op := &LegacyUserOperation{
		Sender:               common.HexToAddress("0x1234567890123456789012345678901234567890"),
		Nonce:                (*hexutil.Big)(big.NewInt(0)),
		CallGasLimit:         (*hexutil.Big)(big.NewInt(100000)),
		VerificationGasLimit: (*hexutil.Big)(big.NewInt(50000)),
		PreVerificationGas:   (*hexutil.Big)(big.NewInt(21000)),
		MaxFeePerGas:         (*hexutil.Big)(big.NewInt(2000000000)),
		MaxPriorityFeePerGas: (*hexutil.Big)(big.NewInt(1000000000)),
	}
	require.NoError(t, op.Validate())

	op.MaxFeePerGas = nil
	err := op.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxFeePerGas")
}

func TestLegacyJSONRoundTrip(t *testing.T) {
	raw := `{
		"sender": "0x1234567890123456789012345678901234567890",
		"nonce": "0x1",
		"initCode": "0x",
		"callData": "0xabcdef",
		"callGasLimit": "0x186a0",
		"verificationGasLimit": "0xc350",
		"preVerificationGas": "0x5208",
		"maxFeePerGas": "0x77359400",
		"maxPriorityFeePerGas": "0x3b9aca00",
		"paymasterAndData": "0x",
		"signature": "0x"
	}`

	var op LegacyUserOperation
	require.NoError(t, json.Unmarshal([]byte(raw), &op))

	assert.Equal(t, "0x1234567890123456789012345678901234567890", op.Sender.Hex())
	assert.Equal(t, int64(1), (*big.Int)(op.Nonce).Int64())
	assert.Equal(t, int64(100000), (*big.Int)(op.CallGasLimit).Int64())
	require.NoError(t, op.Validate())

	encoded, err := json.Marshal(&op)
	require.NoError(t, err)

	var decoded LegacyUserOperation
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, op.Sender, decoded.Sender)
	assert.Equal(t, op.CallData, decoded.CallData)
}
