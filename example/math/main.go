package main

import (
	"context"
	"log"

	"github.com/mnehpets/servicefactory/jsonrpc"
	"github.com/mnehpets/servicefactory/provider"
)

type MathMethods struct{}

type AddParams struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (m *MathMethods) Add(ctx context.Context, p AddParams) (int, error) {
	return p.A + p.B, nil
}

func (m *MathMethods) Sub(ctx context.Context, p AddParams) (int, error) {
	return p.A - p.B, nil
}

func main() {
	ms := jsonrpc.NewMethods()
	ms.Register("math", &MathMethods{})

	p, err := provider.New("localhost", 8080, ms)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	log.Println("Starting server on", p.Addr())
	log.Fatal(provider.Serve(context.Background(), p, 4))
}
