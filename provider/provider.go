// Package provider serves a JSON-RPC handler over HTTP/1.1, one request per
// call.
//
// A Provider binds its listening socket when it is created. Each call to
// HandleRequest accepts exactly one connection, reads one request, invokes
// the handler, writes one response and closes the connection:
//
//	p, err := provider.New("localhost", 0, provider.HandlerFunc(
//	    func(ctx context.Context, req *jsonrpc.Request) (int, any, error) {
//	        return http.StatusOK, req, nil
//	    }))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//	for {
//	    if err := p.HandleRequest(ctx); err != nil {
//	        break
//	    }
//	}
//
// Serve runs that loop until a context is cancelled.
//
// Nothing that goes wrong while processing a request escapes HandleRequest.
// Malformed input is answered with 400 and a JSON-RPC Parse error. A
// jsonrpc.ServiceError returned by the handler is answered with its code and
// message. Any other error, or a panic, is logged with a stack trace and
// answered with Internal error.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mnehpets/servicefactory/httpwire"
	"github.com/mnehpets/servicefactory/jsonrpc"
)

// consumedLinger bounds the drain after a request that was read in full.
const consumedLinger = 5 * time.Millisecond

// Handler processes one decoded JSON-RPC request.
//
// It returns the HTTP status and the payload to encode as the response body.
// A nil payload produces an empty body. The payload is encoded with the
// request's codec, so returning the request itself echoes its body.
type Handler interface {
	ServeRPC(ctx context.Context, req *jsonrpc.Request) (status int, payload interface{}, err error)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, req *jsonrpc.Request) (int, interface{}, error)

func (f HandlerFunc) ServeRPC(ctx context.Context, req *jsonrpc.Request) (int, interface{}, error) {
	return f(ctx, req)
}

// Provider owns a listening socket and a handler.
type Provider struct {
	handler Handler
	ln      net.Listener
	port    int
	reader  httpwire.Reader
	opts    options
	log     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New binds host:port and returns a Provider serving handler on it.
//
// Port 0 asks the operating system for a free port; the assigned port is
// then reported as "service factory port <port>" on the configured stdout.
// Bind failures are returned immediately.
func New(host string, port int, handler Handler, opts ...Option) (*Provider, error) {
	if handler == nil {
		return nil, errors.New("provider: nil handler")
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("provider: invalid port %d", port)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("provider: bind %s: %w", addr, err)
	}

	p := &Provider{
		handler: handler,
		ln:      ln,
		port:    ln.Addr().(*net.TCPAddr).Port,
		reader: httpwire.Reader{
			MaxHeaderBytes: o.maxHeaderBytes,
			MaxBodyBytes:   o.maxBodyBytes,
		},
		opts: o,
		log:  o.logger,
	}

	if port == 0 && o.stdout != nil {
		fmt.Fprintf(o.stdout, "service factory port %d\n", p.port)
	}
	return p, nil
}

// Port returns the bound port.
func (p *Provider) Port() int {
	return p.port
}

// Addr returns the bound address.
func (p *Provider) Addr() net.Addr {
	return p.ln.Addr()
}

// Close releases the listening socket. Calls after the first return the
// first result.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.ln.Close()
	})
	return p.closeErr
}

// HandleRequest blocks until one connection is accepted, then reads,
// dispatches and answers its request and closes it.
//
// The only error returned is a failure to accept, such as net.ErrClosed after
// Close. HandleRequest may be called from several goroutines at once provided
// the handler is safe for concurrent use.
func (p *Provider) HandleRequest(ctx context.Context) error {
	conn, err := p.ln.Accept()
	if err != nil {
		return err
	}
	p.serveConn(ctx, conn)
	return nil
}

func (p *Provider) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if p.opts.timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(p.opts.timeout))
	}
	resp, consumed := p.dispatch(ctx, conn)

	// A client that timed out while sending still gets its 400.
	if p.opts.timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(p.opts.timeout))
	}
	linger := p.opts.linger
	if consumed {
		// Nothing is left to read but bytes already in flight.
		linger = min(linger, consumedLinger)
	}
	if err := httpwire.Send(conn, resp, linger); err != nil {
		p.log.LogAttrs(ctx, slog.LevelDebug, "write response",
			slog.String("remote", conn.RemoteAddr().String()),
			slog.Any("error", err),
		)
	}
}
