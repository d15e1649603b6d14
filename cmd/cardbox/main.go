// Package main is the entrypoint for the cardbox service: phone+OTP
// authentication, session tokens, and the row-scoped data API backing
// the card organizer client.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cardbox-io/cardbox/internal/config"
	"github.com/cardbox-io/cardbox/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:           "cardbox",
		PortFromConfig: func(cfg *config.Config) int { return cfg.Server.HTTPPort },
		Setup:          setup,
	}, nil)
}
