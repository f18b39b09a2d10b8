package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/0xfable/paymaster/erc4337"
	"github.com/0xfable/paymaster/src/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// getHashABI is the read-only digest helper of the deployed VerifyingPaymaster
// used for the legacy operation format: getHash(userOp, validUntil, validAfter).
const getHashABI = `[{"inputs":[{"components":[{"name":"sender","type":"address"},{"name":"nonce","type":"uint256"},{"name":"initCode","type":"bytes"},{"name":"callData","type":"bytes"},{"name":"callGasLimit","type":"uint256"},{"name":"verificationGasLimit","type":"uint256"},{"name":"preVerificationGas","type":"uint256"},{"name":"maxFeePerGas","type":"uint256"},{"name":"maxPriorityFeePerGas","type":"uint256"},{"name":"paymasterAndData","type":"bytes"},{"name":"signature","type":"bytes"}],"name":"userOp","type":"tuple"},{"name":"validUntil","type":"uint48"},{"name":"validAfter","type":"uint48"}],"name":"getHash","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}]`

// legacyUserOpTuple mirrors the UserOperation struct of the v0.6
// VerifyingPaymaster ABI for call marshaling.
type legacyUserOpTuple struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

// DigestSource computes the digest the on-chain verifier recomputes for a
// sponsored operation. Implementations may derive it locally or delegate to a
// deployed helper; both must agree with the verifier byte for byte.
type DigestSource interface {
	Digest(ctx context.Context, op erc4337.UserOperation, window domain.ValidityWindow) (common.Hash, error)
}

// HashService binds digest computation to the paymaster identity, the
// EntryPoint and the chain id. Packed operations are hashed locally; legacy
// operations delegate to the paymaster's getHash view call.
type HashService struct {
	chain      ChainReader
	paymaster  common.Address
	entrypoint common.Address
	chainID    *big.Int
}

func NewHashService(chain ChainReader, paymaster, entrypoint common.Address, chainID *big.Int) *HashService {
	return &HashService{
		chain:      chain,
		paymaster:  paymaster,
		entrypoint: entrypoint,
		chainID:    chainID,
	}
}

func (h *HashService) Digest(ctx context.Context, op erc4337.UserOperation, window domain.ValidityWindow) (common.Hash, error) {
	switch v := op.(type) {
	case *erc4337.PackedUserOperation:
		return h.packedDigest(v, window)
	case *erc4337.LegacyUserOperation:
		return h.legacyDigest(ctx, v, window)
	default:
		return common.Hash{}, domain.NewError(
			domain.ErrorCodeHashComputationFailed,
			fmt.Errorf("unknown user operation variant %T", op),
		)
	}
}

// packedDigest recomputes the verifier digest for the packed format:
// keccak256(abi.encode(keccak256(abi.encode(fields)), entryPoint, chainId)),
// where the paymasterAndData leg is reconstructed as paymaster address
// followed by the ABI-encoded validity window, exactly the prefix the
// verifier strips the signature from.
func (h *HashService) packedDigest(op *erc4337.PackedUserOperation, window domain.ValidityWindow) (common.Hash, error) {
	if err := op.Validate(); err != nil {
		return common.Hash{}, domain.NewError(domain.ErrorCodeHashComputationFailed, err)
	}

	windowBytes, err := packValidityWindow(window)
	if err != nil {
		return common.Hash{}, domain.NewError(domain.ErrorCodeHashComputationFailed, err)
	}
	pmPrefix := append(h.paymaster.Bytes(), windowBytes...)

	addressType, _ := abi.NewType("address", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)
	bytes32Type, _ := abi.NewType("bytes32", "", nil)

	userOpArgs := abi.Arguments{
		{Type: addressType}, // sender
		{Type: uint256Type}, // nonce
		{Type: bytes32Type}, // hashedInitCode
		{Type: bytes32Type}, // hashedCallData
		{Type: bytes32Type}, // accountGasLimits
		{Type: uint256Type}, // preVerificationGas
		{Type: bytes32Type}, // gasFees
		{Type: bytes32Type}, // hashedPaymasterAndData
	}

	var accountGasLimits, gasFees [32]byte
	copy(accountGasLimits[:], op.AccountGasLimits)
	copy(gasFees[:], op.GasFees)

	encoded, err := userOpArgs.Pack(
		op.Sender,
		(*big.Int)(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		accountGasLimits,
		(*big.Int)(op.PreVerificationGas),
		gasFees,
		crypto.Keccak256Hash(pmPrefix),
	)
	if err != nil {
		return common.Hash{}, domain.NewError(
			domain.ErrorCodeHashComputationFailed,
			fmt.Errorf("failed to encode user operation: %w", err),
		)
	}

	outerArgs := abi.Arguments{
		{Type: bytes32Type}, // userOpHash
		{Type: addressType}, // entryPoint
		{Type: uint256Type}, // chainId
	}

	outer, err := outerArgs.Pack(crypto.Keccak256Hash(encoded), h.entrypoint, h.chainID)
	if err != nil {
		return common.Hash{}, domain.NewError(
			domain.ErrorCodeHashComputationFailed,
			fmt.Errorf("failed to encode outer hash: %w", err),
		)
	}

	return crypto.Keccak256Hash(outer), nil
}

// legacyDigest invokes getHash on the deployed paymaster. The contract binds
// the EntryPoint, chain id and paymaster identity itself; the only local
// responsibility is marshaling the call.
func (h *HashService) legacyDigest(ctx context.Context, op *erc4337.LegacyUserOperation, window domain.ValidityWindow) (common.Hash, error) {
	if err := op.Validate(); err != nil {
		return common.Hash{}, domain.NewError(domain.ErrorCodeHashComputationFailed, err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(getHashABI))
	if err != nil {
		return common.Hash{}, domain.NewError(domain.ErrorCodeHashComputationFailed, err)
	}

	tuple := legacyUserOpTuple{
		Sender:               op.Sender,
		Nonce:                (*big.Int)(op.Nonce),
		InitCode:             op.InitCode,
		CallData:             op.CallData,
		CallGasLimit:         (*big.Int)(op.CallGasLimit),
		VerificationGasLimit: (*big.Int)(op.VerificationGasLimit),
		PreVerificationGas:   (*big.Int)(op.PreVerificationGas),
		MaxFeePerGas:         (*big.Int)(op.MaxFeePerGas),
		MaxPriorityFeePerGas: (*big.Int)(op.MaxPriorityFeePerGas),
		PaymasterAndData:     op.PaymasterAndData,
		Signature:            op.Signature,
	}
	if tuple.InitCode == nil {
		tuple.InitCode = []byte{}
	}
	if tuple.CallData == nil {
		tuple.CallData = []byte{}
	}
	if tuple.PaymasterAndData == nil {
		tuple.PaymasterAndData = []byte{}
	}
	if tuple.Signature == nil {
		tuple.Signature = []byte{}
	}

	calldata, err := parsedABI.Pack(
		"getHash",
		tuple,
		new(big.Int).SetUint64(window.ValidUntil),
		new(big.Int).SetUint64(window.ValidAfter),
	)
	if err != nil {
		return common.Hash{}, domain.NewError(
			domain.ErrorCodeHashComputationFailed,
			fmt.Errorf("failed to pack getHash call: %w", err),
		)
	}

	to := h.paymaster
	result, err := h.chain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: calldata})
	if err != nil {
		return common.Hash{}, domain.NewError(
			domain.ErrorCodeHashComputationFailed,
			fmt.Errorf("getHash call failed: %w", err),
			domain.WithMsg("digest computation failed"),
		)
	}
	if len(result) != 32 {
		return common.Hash{}, domain.NewError(
			domain.ErrorCodeHashComputationFailed,
			fmt.Errorf("getHash returned %d bytes, want 32", len(result)),
		)
	}

	return common.BytesToHash(result), nil
}
