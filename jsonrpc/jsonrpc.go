package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only protocol version accepted and emitted.
const Version = "2.0"

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

var (
	// ErrParse reports a body that is not well-formed in the codec's encoding,
	// or a body whose length could not be determined.
	ErrParse = errors.New("jsonrpc: parse error")
	// ErrInvalidRequest reports a well-formed body that is not a JSON-RPC 2.0
	// request object.
	ErrInvalidRequest = errors.New("jsonrpc: invalid request")
)

// Error is the error member of a JSON-RPC response.
type Error struct {
	Code    int         `json:"code" cbor:"code"`
	Message string      `json:"message" cbor:"message"`
	Data    interface{} `json:"data,omitempty" cbor:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new Error.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func NewParseError() *Error          { return NewError(CodeParseError, "Parse error") }
func NewInvalidRequestError() *Error { return NewError(CodeInvalidRequest, "Invalid Request") }
func NewInternalError() *Error       { return NewError(CodeInternalError, "Internal error") }

// ServiceError is the failure a service handler returns to have its code and
// message reported to the client as a JSON-RPC error object.
//
// Any other error returned by a handler is treated as an internal failure.
type ServiceError struct {
	Code    int
	Message string
	Data    interface{}
	Cause   error
}

func (e *ServiceError) Error() string {
	if e == nil {
		return "jsonrpc: service error: <nil>"
	}
	msg := fmt.Sprintf("service error %d", e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// RPCError returns the wire representation of e. A nil e is reported as
// Internal error.
func (e *ServiceError) RPCError() *Error {
	if e == nil {
		return NewInternalError()
	}
	return &Error{Code: e.Code, Message: e.Message, Data: e.Data}
}

// NewServiceError creates a ServiceError with the given code and message.
func NewServiceError(code int, message string) error {
	return &ServiceError{Code: code, Message: message}
}

// WrapServiceError attaches a code and message to err. If err already is,
// or wraps, a ServiceError it is returned unchanged.
func WrapServiceError(code int, message string, err error) error {
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Code: code, Message: message, Cause: err}
}

// Response is a JSON-RPC response object. Exactly one of Result and Error is
// encoded: a non-nil Error selects the error form, otherwise the success form
// is produced with Result (which may be nil).
type Response struct {
	ID     interface{}
	Result interface{}
	Error  *Error
}

type successEnvelope struct {
	JSONRPC string      `json:"jsonrpc" cbor:"jsonrpc"`
	ID      interface{} `json:"id" cbor:"id"`
	Result  interface{} `json:"result" cbor:"result"`
}

type errorEnvelope struct {
	JSONRPC string      `json:"jsonrpc" cbor:"jsonrpc"`
	ID      interface{} `json:"id" cbor:"id"`
	Error   *Error      `json:"error" cbor:"error"`
}

func (r *Response) envelope() interface{} {
	if r.Error != nil {
		return errorEnvelope{JSONRPC: Version, ID: r.ID, Error: r.Error}
	}
	return successEnvelope{JSONRPC: Version, ID: r.ID, Result: r.Result}
}

// Result builds a success response echoing the id of req.
// A nil req yields a null id.
func Result(req *Request, result interface{}) *Response {
	return &Response{ID: req.id(), Result: result}
}

// ErrorResponse builds an error response echoing the id of req.
// A nil req yields a null id.
func ErrorResponse(req *Request, err *Error) *Response {
	if err == nil {
		err = NewInternalError()
	}
	return &Response{ID: req.id(), Error: err}
}

// Request is a decoded JSON-RPC request. It retains the bytes it was decoded
// from: encoding a Request with the codec that produced it yields those bytes
// unchanged.
type Request struct {
	JSONRPC string
	Method  string
	// Params holds the raw params member in the codec's encoding, or nil when
	// absent or null.
	Params []byte
	ID     interface{}

	raw   []byte
	codec Codec
}

func (r *Request) id() interface{} {
	if r == nil {
		return nil
	}
	return r.ID
}

// Bytes returns the body the request was decoded from.
func (r *Request) Bytes() []byte {
	return r.raw
}

// Codec returns the codec that decoded the request.
func (r *Request) Codec() Codec {
	if r.codec == nil {
		return JSON
	}
	return r.codec
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// BindParams decodes the params member into v.
func (r *Request) BindParams(v interface{}) error {
	if r.Params == nil {
		return fmt.Errorf("jsonrpc: %s: no params", r.Method)
	}
	return r.Codec().Unmarshal(r.Params, v)
}

type requestEnvelope struct {
	JSONRPC string      `json:"jsonrpc" cbor:"jsonrpc"`
	Method  string      `json:"method" cbor:"method"`
	Params  interface{} `json:"params,omitempty" cbor:"params,omitempty"`
	ID      interface{} `json:"id" cbor:"id"`
}

// envelopeFor builds a re-encodable form of r with params decoded to plain
// values, for encoding with a codec other than the one that decoded it.
func (r *Request) envelopeFor() (requestEnvelope, error) {
	env := requestEnvelope{JSONRPC: r.JSONRPC, Method: r.Method, ID: r.ID}
	if r.Params != nil {
		var params interface{}
		var err error
		if sameCodec(r.Codec(), JSON) {
			err = json.Unmarshal(r.Params, &params)
		} else {
			err = r.Codec().Unmarshal(r.Params, &params)
		}
		if err != nil {
			return env, err
		}
		env.Params = params
	}
	return env, nil
}
