package provider

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mnehpets/servicefactory/httpwire"
)

type options struct {
	timeout        time.Duration
	linger         time.Duration
	maxHeaderBytes int64
	maxBodyBytes   int64
	strict         bool
	failureStatus  int
	logger         *slog.Logger
	stdout         io.Writer
}

func defaultOptions() options {
	return options{
		linger:         httpwire.DefaultLinger,
		maxHeaderBytes: httpwire.DefaultMaxHeaderBytes,
		maxBodyBytes:   httpwire.DefaultMaxBodyBytes,
		failureStatus:  http.StatusInternalServerError,
		stdout:         os.Stdout,
	}
}

// Option configures a Provider.
type Option func(*options)

// WithTimeout bounds reading the request, and separately writing the
// response, on each accepted connection. The handler itself is not bounded.
// Zero, the default, means no deadline: a stalled client blocks
// HandleRequest.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLinger sets how long the connection is drained after the response is
// written when the request was not read in full, such as a body without
// Content-Length. A fully read request is drained only briefly. See
// httpwire.Send.
func WithLinger(d time.Duration) Option {
	return func(o *options) {
		o.linger = d
	}
}

// WithMaxHeaderBytes limits the size of the request line and headers.
func WithMaxHeaderBytes(n int64) Option {
	return func(o *options) {
		o.maxHeaderBytes = n
	}
}

// WithMaxBodyBytes limits the declared request body length.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		o.maxBodyBytes = n
	}
}

// WithStrictEnvelope reports well-formed bodies that are not JSON-RPC 2.0
// request objects as Invalid Request (-32600), echoing the id when present.
// Without it they are reported as Parse error (-32700) with a null id.
func WithStrictEnvelope() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithFailureStatus sets the HTTP status used when the handler fails.
// The default is 500.
func WithFailureStatus(status int) Option {
	return func(o *options) {
		o.failureStatus = status
	}
}

// WithLogger sets the logger that receives handler failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDiagnostics writes handler failure diagnostics as text records to w.
// The default is os.Stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(o *options) {
		o.logger = slog.New(slog.NewTextHandler(w, nil))
	}
}

// WithStdout sets where the bound port is reported when the port was
// assigned automatically. The default is os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}
