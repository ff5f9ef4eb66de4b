// Package transport implements the LSP base protocol: Content-Length framed
// JSON-RPC 2.0 messages over a byte stream.
package transport

import (
	"bytes"
	"encoding/json"

	"symbolicator/internal/core/errors"
)

const jsonrpcVersion = "2.0"

// JSON-RPC error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	// RequestThrottled is in the implementation-defined server error range.
	RequestThrottled = -32005
)

// Request is an incoming request or notification. Notifications have no ID.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the sender expects no response.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || bytes.Equal(r.ID, []byte("null"))
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return e.Message
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// ToResponseError maps a handler error onto a JSON-RPC error object.
func ToResponseError(err error) *ResponseError {
	if err == nil {
		return nil
	}
	code := InternalError
	switch errors.CodeOf(err) {
	case errors.CodeDecode, errors.CodeValidationError:
		code = InvalidParams
	case errors.CodeNotSupported:
		code = MethodNotFound
	case errors.CodeRateLimited:
		code = RequestThrottled
	}
	return &ResponseError{Code: code, Message: err.Error()}
}

var nullID = json.RawMessage("null")

func resultResponse(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Result: raw}, nil
}

func errorResponse(id json.RawMessage, rpcErr *ResponseError) *Response {
	if len(id) == 0 {
		id = nullID
	}
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Error: rpcErr}
}
