package domain

import (
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure and how it surfaces at the
// transport boundary.
type ErrorCode struct {
	name       string
	httpStatus int
	rpcCode    int
}

func (c ErrorCode) Name() string { return c.name }

// Error kinds of the sponsorship pipeline. TimestampUnavailable and
// HashComputationFailed are per-request failures that are safe to retry in
// full; SigningFailed indicates operator misconfiguration.
var (
	ErrorCodeMalformedRequest = ErrorCode{
		name: "MALFORMED_REQUEST", httpStatus: http.StatusBadRequest, rpcCode: -32602,
	}
	ErrorCodeTimestampUnavailable = ErrorCode{
		name: "TIMESTAMP_UNAVAILABLE", httpStatus: http.StatusServiceUnavailable, rpcCode: -32000,
	}
	ErrorCodeHashComputationFailed = ErrorCode{
		name: "HASH_COMPUTATION_FAILED", httpStatus: http.StatusInternalServerError, rpcCode: -32001,
	}
	ErrorCodeSigningFailed = ErrorCode{
		name: "SIGNING_FAILED", httpStatus: http.StatusInternalServerError, rpcCode: -32002,
	}
	ErrorCodeInternalProcess = ErrorCode{
		name: "INTERNAL_PROCESS", httpStatus: http.StatusInternalServerError, rpcCode: -32603,
	}
)

// DomainError wraps a cause with an error code and an optional message that is
// safe to return to the client.
type DomainError struct {
	code      ErrorCode
	err       error
	clientMsg string
}

type ErrorOption func(*DomainError)

// WithMsg sets the client-facing message. The wrapped cause is only logged.
func WithMsg(msg string) ErrorOption {
	return func(e *DomainError) { e.clientMsg = msg }
}

func NewError(code ErrorCode, err error, opts ...ErrorOption) DomainError {
	e := DomainError{code: code, err: err}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e DomainError) Error() string {
	if e.err == nil {
		return e.code.name
	}
	return fmt.Sprintf("%s: %v", e.code.name, e.err)
}

func (e DomainError) Unwrap() error { return e.err }

func (e DomainError) Name() string { return e.code.name }

func (e DomainError) ClientMsg() string { return e.clientMsg }

func (e DomainError) HTTPStatus() int {
	if e.code.httpStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.code.httpStatus
}

// RPCCode maps the error kind to its JSON-RPC error code.
func (e DomainError) RPCCode() int {
	if e.code.rpcCode == 0 {
		return ErrorCodeInternalProcess.rpcCode
	}
	return e.code.rpcCode
}
