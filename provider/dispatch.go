package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mnehpets/servicefactory/httpwire"
	"github.com/mnehpets/servicefactory/jsonrpc"
)

// panicError carries a value recovered from a panicking handler, or from a
// payload that panicked while being encoded, together with the stack at the
// point of the panic.
type panicError struct {
	value interface{}
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Unwrap() error {
	err, _ := e.value.(error)
	return err
}

// dispatch reads one request from r and produces the response for it.
// consumed reports whether the whole request, body included, was read.
func (p *Provider) dispatch(ctx context.Context, r io.Reader) (resp *httpwire.Response, consumed bool) {
	hreq, err := p.reader.ReadRequest(r)
	if err != nil {
		p.log.LogAttrs(ctx, slog.LevelDebug, "malformed request", slog.Any("error", err))
		return p.parseError(jsonrpc.JSON), false
	}

	codec, _ := jsonrpc.CodecFor(hreq.ContentType())
	req, err := codec.DecodeRequest(hreq.Body)
	if err != nil {
		p.log.LogAttrs(ctx, slog.LevelDebug, "undecodable body", slog.Any("error", err))
		if p.opts.strict && errors.Is(err, jsonrpc.ErrInvalidRequest) {
			return p.encode(codec, http.StatusBadRequest,
				jsonrpc.ErrorResponse(req, jsonrpc.NewInvalidRequestError())), true
		}
		return p.parseError(codec), true
	}

	status, body, err := p.invoke(ctx, codec, req)
	if err != nil {
		return p.failure(ctx, codec, req, err), true
	}
	if body == nil {
		return httpwire.NewResponse(status, "", nil), true
	}
	return httpwire.NewResponse(status, codec.ContentType(), body), true
}

// invoke calls the handler and encodes its payload. A panic in either step
// is returned as a *panicError.
//
// The payload is not encoded when status does not allow a body.
func (p *Provider) invoke(ctx context.Context, codec jsonrpc.Codec, req *jsonrpc.Request) (status int, body []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			status, body = 0, nil
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	status, payload, err := p.handler.ServeRPC(ctx, req)
	if err != nil {
		return 0, nil, err
	}
	if status < 200 || status > 999 {
		return 0, nil, fmt.Errorf("provider: handler returned invalid status %d", status)
	}
	if payload == nil || !httpwire.BodyAllowed(status) {
		return status, nil, nil
	}
	body, err = codec.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("provider: encode result: %w", err)
	}
	return status, body, nil
}

func (p *Provider) parseError(codec jsonrpc.Codec) *httpwire.Response {
	return p.encode(codec, http.StatusBadRequest, jsonrpc.ErrorResponse(nil, jsonrpc.NewParseError()))
}

// failure logs err and encodes the error response for it. A ServiceError
// keeps its code and message; anything else becomes Internal error and is
// logged with a stack trace.
func (p *Provider) failure(ctx context.Context, codec jsonrpc.Codec, req *jsonrpc.Request, err error) *httpwire.Response {
	var rpcErr *jsonrpc.Error
	var se *jsonrpc.ServiceError
	if errors.As(err, &se) && se != nil {
		p.log.LogAttrs(ctx, slog.LevelWarn, "service failure",
			slog.String("type", fmt.Sprintf("%T", se)),
			slog.String("method", req.Method),
			slog.Int("code", se.Code),
			slog.String("message", se.Message),
		)
		rpcErr = se.RPCError()
	} else {
		typeName, stack := describe(err)
		p.log.LogAttrs(ctx, slog.LevelError, "handler failure",
			slog.String("type", typeName),
			slog.String("method", req.Method),
			slog.String("error", err.Error()),
			slog.String("trace", string(stack)),
		)
		rpcErr = jsonrpc.NewInternalError()
	}

	resp := p.encode(codec, p.opts.failureStatus, jsonrpc.ErrorResponse(req, rpcErr))
	if resp.Body == nil {
		// The error data could not be encoded; drop it.
		resp = p.encode(codec, p.opts.failureStatus,
			jsonrpc.ErrorResponse(req, jsonrpc.NewError(rpcErr.Code, rpcErr.Message)))
	}
	return resp
}

// describe returns the type name of the failure and the stack to report for
// it: the panic site for a recovered panic, otherwise the dispatcher's own.
func describe(err error) (string, []byte) {
	var pe *panicError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%T", pe.value), pe.stack
	}
	return fmt.Sprintf("%T", err), debug.Stack()
}

// encode marshals resp with codec. If that fails, or panics in error data
// supplied by the handler, the response has no body.
func (p *Provider) encode(codec jsonrpc.Codec, status int, resp *jsonrpc.Response) (out *httpwire.Response) {
	defer func() {
		if r := recover(); r != nil {
			out = httpwire.NewResponse(status, "", nil)
		}
	}()

	body, err := codec.Marshal(resp)
	if err != nil {
		return httpwire.NewResponse(status, "", nil)
	}
	return httpwire.NewResponse(status, codec.ContentType(), body)
}
