// Package jsonrpc implements the JSON-RPC 2.0 envelope used by the service
// providers: request decoding, response and error encoding, and a method
// registry that turns a receiver struct into a service handler.
//
// This package follows the JSON-RPC 2.0 specification (https://www.jsonrpc.org/specification).
//
// # Codecs
//
// Bodies are decoded and encoded by a Codec. JSON is the default; CBOR is
// available for clients that send Content-Type: application/cbor:
//
//	c, _ := jsonrpc.CodecFor(contentType)
//	req, err := c.DecodeRequest(body)
//	if errors.Is(err, jsonrpc.ErrParse) {
//	    // not well-formed
//	}
//
// A decoded Request remembers its original bytes. Marshaling it with the same
// codec returns those bytes unchanged, so an echo handler reproduces the
// request body exactly.
//
// # Method Signatures
//
// Methods registered with Methods.Register must have this signature:
//
//	func(ctx context.Context, params <StructType>) (result, error)
//
// The params struct uses json tags to define parameter names. Use an empty
// struct for methods with no parameters:
//
//	func (m *Methods) Ping(ctx context.Context, params struct{}) (string, error)
//
// Methods support both positional (array) and named (object) parameters.
// Positional elements are assigned to struct fields in declaration order.
//
// # Namespaces
//
// The namespace prefixes method names. Use empty string for no prefix:
//
//	ms.Register("math", &MathMethods{})  // -> "math.Add"
//	ms.Register("", &MathMethods{})      // -> "Add"
//
// Use a `_` field with a `jsonrpc` tag to override the method name:
//
//	type AddParams struct {
//	    _ struct{} `jsonrpc:"add"`
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
// # Error Handling
//
// Return a ServiceError to report a code and message to the client:
//
//	return 0, jsonrpc.NewServiceError(jsonrpc.CodeInvalidParams, "division by zero")
//
// Any other error is an internal failure: the provider logs it and answers
// with CodeInternalError.
//
// Standard error codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
package jsonrpc
