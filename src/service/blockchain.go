package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/0xfable/paymaster/src/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// DefaultCallTimeout bounds every outbound RPC call so a hung node cannot
// pin request handlers.
const DefaultCallTimeout = 10 * time.Second

// ChainReader is the chain-data collaborator of the sponsorship pipeline:
// the reference timestamp for validity windows and read-only contract calls
// for the delegated hashing path.
type ChainReader interface {
	LatestBlockTimestamp(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

type ChainService struct {
	client      *ethclient.Client
	callTimeout time.Duration
}

func NewChainService(rpcURL string, callTimeout time.Duration) (*ChainService, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &ChainService{client: client, callTimeout: callTimeout}, nil
}

// logger wraps the request context with component info
func (c *ChainService) logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx).With().Str("service", "chain").Logger()
	return &l
}

// ChainID queries the connected node once at startup when no chain id is
// configured.
func (c *ChainService) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}
	return chainID, nil
}

// LatestBlockTimestamp returns the timestamp of the latest known block. Any
// failure, including a node with no blocks, maps to TimestampUnavailable so
// callers can retry the whole request.
func (c *ChainService) LatestBlockTimestamp(ctx context.Context) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(callCtx, nil)
	if err != nil {
		c.logger(ctx).Error().Err(err).Msg("failed to fetch latest block header")
		return 0, domain.NewError(
			domain.ErrorCodeTimestampUnavailable,
			err,
			domain.WithMsg("latest block timestamp unavailable"),
		)
	}
	if header == nil {
		return 0, domain.NewError(
			domain.ErrorCodeTimestampUnavailable,
			fmt.Errorf("node returned no latest block"),
			domain.WithMsg("latest block timestamp unavailable"),
		)
	}
	return header.Time, nil
}

// CallContract executes a read-only contract call with a bounded timeout.
func (c *ChainService) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	result, err := c.client.CallContract(callCtx, msg, nil)
	if err != nil {
		c.logger(ctx).Error().Err(err).
			Str("to", msg.To.Hex()).
			Msg("contract call failed")
		return nil, err
	}
	return result, nil
}

// Close releases the underlying RPC connection.
func (c *ChainService) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
