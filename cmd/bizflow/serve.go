package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/a4way/report-agent-workflow/internal/config"
)

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("address")
	simulate, _ := cmd.Flags().GetBool("simulate")

	// flags win over the file
	a, cleanup, err := setup(func(cfg *config.Config) {
		if addr != "" {
			cfg.Server.Address = addr
		}
		if simulate {
			cfg.Server.Simulate = true
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	srv := a.NewServer(ctx)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived signal, shutting down gracefully...")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.ShutdownTimeout())
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
