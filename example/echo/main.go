package main

import (
	"context"
	"log"
	"net/http"

	"github.com/mnehpets/servicefactory/jsonrpc"
	"github.com/mnehpets/servicefactory/provider"
)

// Echo answers every request with the request body itself.
func Echo(ctx context.Context, req *jsonrpc.Request) (int, interface{}, error) {
	return http.StatusOK, req, nil
}

func main() {
	p, err := provider.New("localhost", 0, provider.HandlerFunc(Echo))
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	for {
		if err := p.HandleRequest(context.Background()); err != nil {
			log.Fatal(err)
		}
	}
}
