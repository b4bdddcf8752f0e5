package jsonrpc

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"sync"
)

// rpcMethod holds reflection data for a registered RPC method.
type rpcMethod struct {
	receiver    reflect.Value
	method      reflect.Method
	paramType   reflect.Type
	paramNames  []string // JSON tag names for validation and named params
	paramFields []int    // Field indices for positional params unmarshaling
	methodName  string
}

func (m *rpcMethod) call(ctx context.Context, codec Codec, params []byte) (interface{}, error) {
	param := reflect.New(m.paramType)

	if elems, err := codec.SplitArray(params); params != nil && err == nil {
		// Positional params: array elements map to struct fields by declaration order.
		if len(elems) != len(m.paramFields) {
			return nil, NewServiceError(CodeInvalidParams, "invalid number of params")
		}
		for i, rawElem := range elems {
			field := param.Elem().Field(m.paramFields[i])
			if err := codec.Unmarshal(rawElem, field.Addr().Interface()); err != nil {
				return nil, WrapServiceError(CodeInvalidParams, "invalid params", err)
			}
		}
	} else if params != nil {
		// Named params: object keys map to struct fields by json tags.
		if err := codec.Unmarshal(params, param.Interface()); err != nil {
			return nil, WrapServiceError(CodeInvalidParams, "invalid params", err)
		}
		var paramMap map[string]interface{}
		if err := codec.Unmarshal(params, &paramMap); err == nil {
			for _, name := range m.paramNames {
				if _, ok := paramMap[name]; !ok {
					return nil, NewServiceError(CodeInvalidParams, "missing param: "+name)
				}
			}
		}
	} else if len(m.paramNames) > 0 {
		return nil, NewServiceError(CodeInvalidParams, "missing param: "+m.paramNames[0])
	}

	results := m.method.Func.Call([]reflect.Value{m.receiver, reflect.ValueOf(ctx), param.Elem()})

	var retErr error
	if !results[1].IsNil() {
		retErr = results[1].Interface().(error)
	}
	return results[0].Interface(), retErr
}

// Methods is a registry of JSON-RPC methods that serves as a handler for a
// provider. Methods is safe for concurrent use.
type Methods struct {
	mu      sync.RWMutex
	methods map[string]*rpcMethod
}

// NewMethods creates a new, empty method registry.
func NewMethods() *Methods {
	return &Methods{
		methods: make(map[string]*rpcMethod),
	}
}

// Register adds methods from a receiver struct to the registry.
// The namespace prefixes all method names (e.g., "math" + "Add" -> "math.Add").
// Use empty string for no namespace (method names used directly).
// Only exported methods with valid signatures are registered.
func (ms *Methods) Register(namespace string, receiver interface{}) {
	val := reflect.ValueOf(receiver)
	typ := val.Type()

	for i := 0; i < val.NumMethod(); i++ {
		method := typ.Method(i)
		if !method.IsExported() {
			continue
		}

		handler, methodName := parseMethod(val, method)
		if handler == nil {
			continue
		}

		name := methodName
		if namespace != "" {
			name = namespace + "." + methodName
		}

		ms.mu.Lock()
		if _, exists := ms.methods[name]; exists {
			ms.mu.Unlock()
			panic("jsonrpc: method name collision: " + name)
		}
		ms.methods[name] = handler
		ms.mu.Unlock()
	}
}

// Names returns the registered method names.
func (ms *Methods) Names() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	names := make([]string, 0, len(ms.methods))
	for name := range ms.methods {
		names = append(names, name)
	}
	return names
}

// ServeRPC invokes the method named by req.
//
// Successful calls yield status 200 and a success Response. Notifications
// yield status 204 and no payload. Errors from the method are returned
// unchanged, so a ServiceError reaches the client with its own code and any
// other error is treated by the provider as an internal failure.
func (ms *Methods) ServeRPC(ctx context.Context, req *Request) (int, interface{}, error) {
	ms.mu.RLock()
	method, ok := ms.methods[req.Method]
	ms.mu.RUnlock()

	if !ok {
		return 0, nil, NewServiceError(CodeMethodNotFound, "Method not found: "+req.Method)
	}

	result, err := method.call(ctx, req.Codec(), req.Params)
	if err != nil {
		return 0, nil, err
	}
	if req.IsNotification() {
		return http.StatusNoContent, nil, nil
	}
	return http.StatusOK, Result(req, result), nil
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// parseMethod extracts method signature information via reflection.
// Valid signature: func(ctx context.Context, params Struct) (result, error)
// Returns nil for invalid signatures.
func parseMethod(receiver reflect.Value, method reflect.Method) (*rpcMethod, string) {
	ft := method.Func.Type()

	if ft.NumIn() != 3 || ft.In(1) != contextType {
		return nil, ""
	}
	if ft.NumOut() != 2 || ft.Out(1) != errorType {
		return nil, ""
	}

	paramType := ft.In(2)
	if paramType.Kind() != reflect.Struct {
		return nil, ""
	}

	rpc := &rpcMethod{
		receiver:   receiver,
		method:     method,
		paramType:  paramType,
		methodName: method.Name,
	}

	for i := 0; i < paramType.NumField(); i++ {
		field := paramType.Field(i)
		if field.Name == "_" {
			if tag := field.Tag.Get("jsonrpc"); tag != "" {
				rpc.methodName = tag
			}
			continue
		}
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			name, _, _ = strings.Cut(jsonTag, ",")
			if name == "" || name == "-" {
				continue
			}
		}
		rpc.paramNames = append(rpc.paramNames, name)
		rpc.paramFields = append(rpc.paramFields, i)
	}

	return rpc, rpc.methodName
}
