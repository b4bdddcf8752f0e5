package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Codec encodes and decodes JSON-RPC bodies in one wire encoding.
type Codec interface {
	// ContentType is the media type written on responses.
	ContentType() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
	// DecodeRequest decodes body as a request object. Errors wrap ErrParse
	// or ErrInvalidRequest. With ErrInvalidRequest the returned request is
	// non-nil and carries the id when one could be recovered.
	DecodeRequest(body []byte) (*Request, error)
	// SplitArray returns the raw elements of an encoded array.
	SplitArray(data []byte) ([][]byte, error)
}

var (
	// JSON is the default codec, selected for application/json and for any
	// unrecognised or missing Content-Type.
	JSON Codec = jsonCodec{}
	// CBOR is selected for application/cbor.
	CBOR Codec = cborCodec{}
)

var codecs = map[string]Codec{
	"application/json": JSON,
	"application/cbor": CBOR,
}

// CodecFor returns the codec registered for the media type of contentType.
// Parameters are ignored. The second result is false when the JSON fallback
// was used for a non-empty contentType.
func CodecFor(contentType string) (Codec, bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return JSON, true
	}
	c, ok := codecs[mediaType]
	if !ok {
		return JSON, false
	}
	return c, true
}

func sameCodec(a, b Codec) bool {
	return a != nil && b != nil && a.ContentType() == b.ContentType()
}

// validID reports whether v may be used as a request id.
func validID(v interface{}) bool {
	switch v.(type) {
	case nil, string, json.Number, float64, int64, uint64:
		return true
	}
	return false
}

func checkEnvelope(req *Request, version, method interface{}) error {
	if v, ok := version.(string); !ok || v != Version {
		return fmt.Errorf("%w: jsonrpc member must be %q", ErrInvalidRequest, Version)
	}
	m, ok := method.(string)
	if !ok || m == "" {
		return fmt.Errorf("%w: method required", ErrInvalidRequest)
	}
	req.JSONRPC = Version
	req.Method = m
	return nil
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

// Marshal encodes v without HTML escaping. json.RawMessage values, and
// requests decoded by this codec, are returned verbatim.
func (c jsonCodec) Marshal(v interface{}) ([]byte, error) {
	switch v := v.(type) {
	case json.RawMessage:
		return v, nil
	case *Request:
		if v != nil && v.raw != nil && sameCodec(v.Codec(), c) {
			return v.raw, nil
		}
	}
	return marshalJSON(v)
}

// marshalJSON is json.Marshal without HTML escaping.
func marshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal decodes numbers into interface{} values as json.Number.
func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

type jsonEnvelope struct {
	JSONRPC interface{}     `json:"jsonrpc"`
	Method  interface{}     `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

func (c jsonCodec) DecodeRequest(body []byte) (*Request, error) {
	if len(bytes.TrimSpace(body)) == 0 || !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrParse)
	}
	var env jsonEnvelope
	if err := c.Unmarshal(body, &env); err != nil {
		return &Request{raw: body, codec: c}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req := &Request{raw: body, codec: c}
	if !validID(env.ID) {
		return req, fmt.Errorf("%w: invalid id", ErrInvalidRequest)
	}
	req.ID = env.ID
	if err := checkEnvelope(req, env.JSONRPC, env.Method); err != nil {
		return req, err
	}
	if p := bytes.TrimSpace(env.Params); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
		if p[0] != '[' && p[0] != '{' {
			return req, fmt.Errorf("%w: params must be an array or object", ErrInvalidRequest)
		}
		req.Params = p
	}
	return req, nil
}

func (jsonCodec) SplitArray(data []byte) ([][]byte, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, err
	}
	out := make([][]byte, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out, nil
}

var cborDecMode = mustDecMode(cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
})

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic("jsonrpc: invalid cbor decode options: " + err.Error())
	}
	return dm
}

type cborCodec struct{}

func (cborCodec) ContentType() string { return "application/cbor" }

// Marshal encodes v as CBOR. cbor.RawMessage values, and requests decoded by
// this codec, are returned verbatim.
func (c cborCodec) Marshal(v interface{}) ([]byte, error) {
	switch v := v.(type) {
	case cbor.RawMessage:
		return v, nil
	case *Request:
		if v != nil && v.raw != nil && sameCodec(v.Codec(), c) {
			return v.raw, nil
		}
	}
	return cbor.Marshal(v)
}

// Unmarshal decodes maps into interface{} values as map[string]interface{}.
func (cborCodec) Unmarshal(data []byte, v interface{}) error {
	return cborDecMode.Unmarshal(data, v)
}

type cborEnvelope struct {
	JSONRPC interface{}     `cbor:"jsonrpc"`
	Method  interface{}     `cbor:"method"`
	Params  cbor.RawMessage `cbor:"params"`
	ID      interface{}     `cbor:"id"`
}

const (
	cborMajorArray = 4
	cborMajorMap   = 5
	cborNull       = 0xf6
)

func (c cborCodec) DecodeRequest(body []byte) (*Request, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrParse)
	}
	if err := cbor.Wellformed(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	var env cborEnvelope
	if err := c.Unmarshal(body, &env); err != nil {
		return &Request{raw: body, codec: c}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req := &Request{raw: body, codec: c}
	if !validID(env.ID) {
		return req, fmt.Errorf("%w: invalid id", ErrInvalidRequest)
	}
	req.ID = env.ID
	if err := checkEnvelope(req, env.JSONRPC, env.Method); err != nil {
		return req, err
	}
	if p := env.Params; len(p) > 0 && p[0] != cborNull {
		if major := p[0] >> 5; major != cborMajorArray && major != cborMajorMap {
			return req, fmt.Errorf("%w: params must be an array or map", ErrInvalidRequest)
		}
		req.Params = []byte(p)
	}
	return req, nil
}

func (c cborCodec) SplitArray(data []byte) ([][]byte, error) {
	var elems []cbor.RawMessage
	if err := c.Unmarshal(data, &elems); err != nil {
		return nil, err
	}
	out := make([][]byte, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (r *Response) MarshalJSON() ([]byte, error) {
	return marshalJSON(r.envelope())
}

// MarshalCBOR implements cbor.Marshaler.
func (r *Response) MarshalCBOR() ([]byte, error) {
	resp := *r
	if n, ok := resp.ID.(json.Number); ok {
		resp.ID = numberValue(n)
	}
	return cbor.Marshal(resp.envelope())
}

// MarshalJSON implements json.Marshaler. A request decoded from JSON
// marshals to its original bytes.
func (r *Request) MarshalJSON() ([]byte, error) {
	if r.raw != nil && sameCodec(r.Codec(), JSON) {
		return r.raw, nil
	}
	env, err := r.envelopeFor()
	if err != nil {
		return nil, err
	}
	if r.Params != nil && sameCodec(r.Codec(), JSON) {
		env.Params = json.RawMessage(r.Params)
	}
	return marshalJSON(env)
}

// MarshalCBOR implements cbor.Marshaler. A request decoded from CBOR
// marshals to its original bytes.
func (r *Request) MarshalCBOR() ([]byte, error) {
	if r.raw != nil && sameCodec(r.Codec(), CBOR) {
		return r.raw, nil
	}
	env, err := r.envelopeFor()
	if err != nil {
		return nil, err
	}
	if n, ok := env.ID.(json.Number); ok {
		env.ID = numberValue(n)
	}
	return cbor.Marshal(env)
}

// numberValue converts n to an int64 when it is integral, else a float64.
func numberValue(n json.Number) interface{} {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
