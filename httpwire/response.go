package httpwire

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"time"
)

// DefaultLinger is how long Send waits for the peer to finish sending after
// the response has been written and the write side shut down.
const DefaultLinger = 250 * time.Millisecond

// maxDrainBytes bounds how much unread request data Send discards.
const maxDrainBytes = 256 << 10

// Response is an HTTP response with a fully buffered body.
type Response struct {
	StatusCode int
	Header     textproto.MIMEHeader
	Body       []byte
}

// NewResponse creates a response that closes the connection. contentType is
// omitted when empty.
func NewResponse(status int, contentType string, body []byte) *Response {
	h := make(textproto.MIMEHeader)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("Connection", "close")
	return &Response{StatusCode: status, Header: h, Body: body}
}

// StatusText returns the reason phrase for code.
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "status code " + strconv.Itoa(code)
}

// BodyAllowed reports whether a response with the given status may carry a
// body. 1xx, 204 and 304 responses may not.
func BodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == 204 || status == 304:
		return false
	}
	return true
}

// WriteTo writes the status line, headers and body to w. Content-Length is
// set from the body, replacing any value in Header. When the status does not
// allow a body, neither Content-Length nor the body is written.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	bw := bufio.NewWriter(cw)

	bw.WriteString("HTTP/1.1 ")
	bw.WriteString(strconv.Itoa(r.StatusCode))
	bw.WriteString(" ")
	bw.WriteString(StatusText(r.StatusCode))
	bw.WriteString("\r\n")

	keys := make([]string, 0, len(r.Header)+1)
	for k := range r.Header {
		if k != "Content-Length" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range r.Header[k] {
			bw.WriteString(k)
			bw.WriteString(": ")
			bw.WriteString(v)
			bw.WriteString("\r\n")
		}
	}
	if BodyAllowed(r.StatusCode) {
		bw.WriteString("Content-Length: ")
		bw.WriteString(strconv.Itoa(len(r.Body)))
		bw.WriteString("\r\n\r\n")
		bw.Write(r.Body)
	} else {
		bw.WriteString("\r\n")
	}

	err := bw.Flush()
	return cw.n, err
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Send writes resp to conn and closes conn, whether or not the write
// succeeded.
//
// When conn supports half-close the write side is shut down first and any
// unread request bytes are drained for up to linger, so that closing with
// unread data does not reset the connection before the peer reads the
// response. A linger of zero closes immediately.
func Send(conn net.Conn, resp *Response, linger time.Duration) error {
	defer conn.Close()

	if _, err := resp.WriteTo(conn); err != nil {
		return err
	}

	hc, ok := conn.(interface{ CloseWrite() error })
	if !ok || linger <= 0 {
		return nil
	}
	if err := hc.CloseWrite(); err != nil {
		return nil
	}
	_ = conn.SetReadDeadline(time.Now().Add(linger))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, maxDrainBytes))
	return nil
}
