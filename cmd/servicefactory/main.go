// Command servicefactory serves the built-in math service as JSON-RPC 2.0
// over HTTP/1.1.
//
// Settings are read from the environment (SERVICE_HOST, SERVICE_PORT,
// SERVICE_TIMEOUT, SERVICE_WORKERS), optionally loaded from a .env file in
// the working directory, and may be overridden by flags.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mnehpets/servicefactory/jsonrpc"
	"github.com/mnehpets/servicefactory/provider"
)

func newRootCmd() *cobra.Command {
	cfg, envErr := configFromEnv()

	cmd := &cobra.Command{
		Use:           "servicefactory",
		Short:         "Serve a JSON-RPC 2.0 service over HTTP/1.1",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "host to bind")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "port to bind, 0 for any free port")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-connection I/O deadline, 0 for none")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of connections handled at once")
	flags.BoolVar(&cfg.Strict, "strict", cfg.Strict, "report malformed envelopes as Invalid Request")
	return cmd
}

func newMethods() *jsonrpc.Methods {
	ms := jsonrpc.NewMethods()
	ms.Register("math", &mathService{})
	ms.Register("sys", &sysService{methods: ms})
	return ms
}

func run(ctx context.Context, cfg config) error {
	opts := []provider.Option{provider.WithTimeout(cfg.Timeout)}
	if cfg.Strict {
		opts = append(opts, provider.WithStrictEnvelope())
	}

	p, err := provider.New(cfg.Host, cfg.Port, newMethods(), opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	log.Printf("Serving on %s", p.Addr())
	return provider.Serve(ctx, p, cfg.Workers)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
