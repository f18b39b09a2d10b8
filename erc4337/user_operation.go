package erc4337

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EntryPointV06 and EntryPointV07 are the canonical EntryPoint deployments the
// two operation variants target.
var (
	EntryPointV06 = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	EntryPointV07 = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
)

// UserOperation is the tagged union over the two ERC-4337 ABI variants.
// Implementations are immutable values: WithPaymasterAndData returns a copy
// and the user-held signature is never modified.
type UserOperation interface {
	GetSender() common.Address
	GetPaymasterAndData() []byte
	WithPaymasterAndData(data []byte) UserOperation

	// sealed marks the set of variants as closed so digest computation can
	// match exhaustively.
	sealed()
}

// LegacyUserOperation is the field-separated format used by EntryPoint v0.6.
type LegacyUserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *hexutil.Big   `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

func (op *LegacyUserOperation) GetSender() common.Address { return op.Sender }

func (op *LegacyUserOperation) GetPaymasterAndData() []byte { return op.PaymasterAndData }

func (op *LegacyUserOperation) WithPaymasterAndData(data []byte) UserOperation {
	clone := *op
	clone.PaymasterAndData = append(hexutil.Bytes(nil), data...)
	return &clone
}

func (op *LegacyUserOperation) sealed() {}

// Validate checks that the numeric fields required for hashing are present.
func (op *LegacyUserOperation) Validate() error {
	for name, v := range map[string]*hexutil.Big{
		"nonce":                op.Nonce,
		"callGasLimit":         op.CallGasLimit,
		"verificationGasLimit": op.VerificationGasLimit,
		"preVerificationGas":   op.PreVerificationGas,
		"maxFeePerGas":         op.MaxFeePerGas,
		"maxPriorityFeePerGas": op.MaxPriorityFeePerGas,
	} {
		if v == nil {
			return fmt.Errorf("missing required field: %s", name)
		}
	}
	return nil
}

// PackedUserOperation is the EntryPoint >=0.7 format where the gas limits and
// fees are carried as two packed 32-byte words.
type PackedUserOperation struct {
	Sender             common.Address `json:"sender"`
	Nonce              *hexutil.Big   `json:"nonce"`
	InitCode           hexutil.Bytes  `json:"initCode"`
	CallData           hexutil.Bytes  `json:"callData"`
	AccountGasLimits   hexutil.Bytes  `json:"accountGasLimits"`
	PreVerificationGas *hexutil.Big   `json:"preVerificationGas"`
	GasFees            hexutil.Bytes  `json:"gasFees"`
	PaymasterAndData   hexutil.Bytes  `json:"paymasterAndData"`
	Signature          hexutil.Bytes  `json:"signature"`
}

func (op *PackedUserOperation) GetSender() common.Address { return op.Sender }

func (op *PackedUserOperation) GetPaymasterAndData() []byte { return op.PaymasterAndData }

func (op *PackedUserOperation) WithPaymasterAndData(data []byte) UserOperation {
	clone := *op
	clone.PaymasterAndData = append(hexutil.Bytes(nil), data...)
	return &clone
}

func (op *PackedUserOperation) sealed() {}

// Validate checks the structural invariants of the packed format. The packed
// words must be exactly 32 bytes; anything else cannot be hashed.
func (op *PackedUserOperation) Validate() error {
	if op.Nonce == nil {
		return fmt.Errorf("missing required field: nonce")
	}
	if op.PreVerificationGas == nil {
		return fmt.Errorf("missing required field: preVerificationGas")
	}
	if len(op.AccountGasLimits) != 32 {
		return fmt.Errorf("accountGasLimits must be 32 bytes, got %d", len(op.AccountGasLimits))
	}
	if len(op.GasFees) != 32 {
		return fmt.Errorf("gasFees must be 32 bytes, got %d", len(op.GasFees))
	}
	return nil
}
