package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/0xfable/paymaster/erc4337"
	"github.com/0xfable/paymaster/src/domain"
	"github.com/0xfable/paymaster/src/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const MethodSponsorUserOperation = "pm_sponsorUserOperation"

// RPCRequest is the JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RPCResponse is the JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCHandler struct {
	sponsor *service.SponsorService
}

func NewRPCHandler(sponsor *service.SponsorService) *RPCHandler {
	return &RPCHandler{sponsor: sponsor}
}

// Handle serves the single JSON-RPC endpoint. Unrecognized methods return the
// generic placeholder result the original service responded with, so existing
// clients keep working.
func (h *RPCHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RPCRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithRPCError(c, nil, domain.NewError(
				domain.ErrorCodeMalformedRequest,
				err,
				domain.WithMsg("invalid JSON-RPC request"),
			))
			return
		}

		switch req.Method {
		case MethodSponsorUserOperation:
			h.sponsorUserOperation(c, req)
		default:
			zerolog.Ctx(c.Request.Context()).Warn().
				Str("rpc_method", req.Method).
				Msg("unrecognized method")
			c.JSON(http.StatusOK, RPCResponse{JSONRPC: "2.0", ID: req.ID, Result: "ok"})
		}
	}
}

func (h *RPCHandler) sponsorUserOperation(c *gin.Context, req RPCRequest) {
	ctx := c.Request.Context()

	op, err := decodeOperation(req.Params)
	if err != nil {
		respondWithRPCError(c, req.ID, domain.NewError(
			domain.ErrorCodeMalformedRequest,
			err,
			domain.WithMsg("invalid user operation"),
		))
		return
	}

	result, err := h.sponsor.SponsorUserOperation(ctx, op)
	if err != nil {
		respondWithRPCError(c, req.ID, err)
		return
	}

	if result.Declined {
		zerolog.Ctx(ctx).Info().
			Str("sender", op.GetSender().Hex()).
			Str("reason", result.Reason).
			Msg("returning unsponsored operation")
	}

	c.JSON(http.StatusOK, RPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result.Operation})
}

// decodeOperation accepts the operation either as a bare params object or as
// the first element of a params array, and picks the ABI variant from the
// presence of the packed gas words.
func decodeOperation(params json.RawMessage) (erc4337.UserOperation, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing params")
	}

	raw := params
	var list []json.RawMessage
	if err := json.Unmarshal(params, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("empty params array")
		}
		raw = list[0]
	}

	var probe struct {
		AccountGasLimits *json.RawMessage `json:"accountGasLimits"`
		GasFees          *json.RawMessage `json:"gasFees"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("params is not a user operation object: %w", err)
	}

	if probe.AccountGasLimits != nil || probe.GasFees != nil {
		var op erc4337.PackedUserOperation
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("invalid packed user operation: %w", err)
		}
		if err := op.Validate(); err != nil {
			return nil, err
		}
		return &op, nil
	}

	var op erc4337.LegacyUserOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("invalid user operation: %w", err)
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return &op, nil
}

// respondWithRPCError maps domain errors onto the JSON-RPC error envelope.
// Unknown errors are reported as internal without leaking their cause.
func respondWithRPCError(c *gin.Context, id interface{}, err error) {
	domainErr := domain.NewError(domain.ErrorCodeInternalProcess, err)
	_ = errors.As(err, &domainErr)

	message := domainErr.ClientMsg()
	if message == "" {
		message = domainErr.Name()
	}

	ctx := c.Request.Context()
	zerolog.Ctx(ctx).Error().
		Err(err).
		Str("error_kind", domainErr.Name()).
		Int("rpc_code", domainErr.RPCCode()).
		Msg("request failed")

	_ = c.Error(err)
	c.AbortWithStatusJSON(domainErr.HTTPStatus(), RPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    domainErr.RPCCode(),
			Message: message,
			Data:    map[string]string{"kind": domainErr.Name()},
		},
	})
}

// HandleHealthCheck reports liveness for orchestration probes.
func HandleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
