// Package httpwire reads a single HTTP/1.1 request from, and writes a single
// response to, a raw connection.
//
// Only Content-Length framing is supported. There is no chunked transfer
// coding and no keep-alive: one connection carries one request and one
// response, after which the connection is closed.
package httpwire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"net/textproto"
	"strconv"
	"strings"
)

const (
	// DefaultMaxHeaderBytes bounds the request line and header block.
	DefaultMaxHeaderBytes = 1 << 20
	// DefaultMaxBodyBytes bounds the declared Content-Length.
	DefaultMaxBodyBytes = 32 << 20
)

var (
	ErrMalformedRequest     = errors.New("httpwire: malformed request")
	ErrMissingContentLength = errors.New("httpwire: missing Content-Length")
	ErrHeaderTooLarge       = errors.New("httpwire: header block too large")
	ErrBodyTooLarge         = errors.New("httpwire: body too large")
)

// Request is a parsed HTTP request.
type Request struct {
	Method string
	Path   string
	Proto  string
	// Header keys are canonicalized, so lookups are case-insensitive.
	Header textproto.MIMEHeader
	// ContentLength is the declared body length, or -1 when none was declared.
	ContentLength int64
	Body          []byte
}

// ContentType returns the Content-Type header value.
func (r *Request) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Reader parses requests. The zero value uses the default limits.
type Reader struct {
	MaxHeaderBytes int64
	MaxBodyBytes   int64
}

// ReadRequest reads one request from r using the default limits.
func ReadRequest(r io.Reader) (*Request, error) {
	return (&Reader{}).ReadRequest(r)
}

// ReadRequest reads the request line and header block from r, then exactly
// Content-Length bytes of body.
//
// When the header block was read but no body length could be determined the
// returned request is non-nil and the error wraps ErrMissingContentLength.
// All other failures wrap ErrMalformedRequest, ErrHeaderTooLarge or
// ErrBodyTooLarge.
func (rd *Reader) ReadRequest(r io.Reader) (*Request, error) {
	maxHeader := rd.MaxHeaderBytes
	if maxHeader <= 0 {
		maxHeader = DefaultMaxHeaderBytes
	}
	maxBody := rd.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	lr := &io.LimitedReader{R: r, N: maxHeader}
	br := bufio.NewReader(lr)
	tp := textproto.NewReader(br)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, headerError(lr, err)
	}
	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	req.Header, err = tp.ReadMIMEHeader()
	if err != nil {
		return nil, headerError(lr, err)
	}

	req.ContentLength, err = contentLength(req.Header)
	if err != nil {
		return req, err
	}
	if req.ContentLength > maxBody {
		return req, fmt.Errorf("%w: Content-Length %d exceeds %d", ErrBodyTooLarge, req.ContentLength, maxBody)
	}

	// The header limit no longer applies; the body is bounded by its length.
	lr.N = math.MaxInt64
	req.Body = make([]byte, req.ContentLength)
	if _, err := io.ReadFull(br, req.Body); err != nil {
		return req, fmt.Errorf("%w: short body: %w", ErrMalformedRequest, err)
	}
	return req, nil
}

func parseRequestLine(line string) (*Request, error) {
	method, rest, ok1 := strings.Cut(line, " ")
	path, proto, ok2 := strings.Cut(rest, " ")
	if !ok1 || !ok2 || method == "" || path == "" || !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("%w: bad request line %q", ErrMalformedRequest, line)
	}
	return &Request{Method: method, Path: path, Proto: proto, ContentLength: -1}, nil
}

func headerError(lr *io.LimitedReader, err error) error {
	if lr.N <= 0 {
		return ErrHeaderTooLarge
	}
	return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
}

func contentLength(h textproto.MIMEHeader) (int64, error) {
	if te := h.Get("Transfer-Encoding"); te != "" {
		return -1, fmt.Errorf("%w: unsupported Transfer-Encoding %q", ErrMissingContentLength, te)
	}
	values := h.Values("Content-Length")
	if len(values) == 0 {
		return -1, ErrMissingContentLength
	}
	first := strings.TrimSpace(values[0])
	for _, v := range values[1:] {
		if strings.TrimSpace(v) != first {
			return -1, fmt.Errorf("%w: conflicting Content-Length values", ErrMalformedRequest)
		}
	}
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		return -1, fmt.Errorf("%w: bad Content-Length %q", ErrMalformedRequest, first)
	}
	return n, nil
}
