package main

import (
	"context"
	"sort"

	"github.com/mnehpets/servicefactory/jsonrpc"
)

type mathService struct{}

type binaryParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func (s *mathService) Add(ctx context.Context, p binaryParams) (float64, error) {
	return p.A + p.B, nil
}

func (s *mathService) Sub(ctx context.Context, p binaryParams) (float64, error) {
	return p.A - p.B, nil
}

func (s *mathService) Mul(ctx context.Context, p binaryParams) (float64, error) {
	return p.A * p.B, nil
}

func (s *mathService) Div(ctx context.Context, p binaryParams) (float64, error) {
	if p.B == 0 {
		return 0, jsonrpc.NewServiceError(jsonrpc.CodeInvalidParams, "division by zero")
	}
	return p.A / p.B, nil
}

type sysService struct {
	methods *jsonrpc.Methods
}

func (s *sysService) Ping(ctx context.Context, _ struct{}) (string, error) {
	return "pong", nil
}

// ListMethods returns the registered method names in sorted order.
func (s *sysService) ListMethods(ctx context.Context, _ struct{}) ([]string, error) {
	names := s.methods.Names()
	sort.Strings(names)
	return names, nil
}
