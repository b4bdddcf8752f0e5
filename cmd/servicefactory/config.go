package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// config holds the provider settings. Environment variables supply the
// defaults; command line flags override them.
type config struct {
	Host    string
	Port    int
	Timeout time.Duration
	Workers int
	Strict  bool
}

const (
	envHost    = "SERVICE_HOST"
	envPort    = "SERVICE_PORT"
	envTimeout = "SERVICE_TIMEOUT"
	envWorkers = "SERVICE_WORKERS"
)

// configFromEnv reads the defaults from the environment.
func configFromEnv() (config, error) {
	cfg := config{Host: "localhost", Workers: 1}

	if v := os.Getenv(envHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(envPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return cfg, fmt.Errorf("%s: invalid port %q", envPort, v)
		}
		cfg.Port = port
	}
	if v := os.Getenv(envTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", envTimeout, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(envWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("%s: invalid worker count %q", envWorkers, v)
		}
		cfg.Workers = n
	}
	return cfg, nil
}
