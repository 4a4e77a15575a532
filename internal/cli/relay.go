package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/light-bringer/fieldwatch/internal/app/changed/usecases/relay_outbox"
	"github.com/light-bringer/fieldwatch/internal/services"
)

// NewRelayCommand creates the relay command.
func NewRelayCommand(rootOpts *RootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Publish pending change notifications from the outbox to NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runRelay(ctx, rootOpts, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "relay one batch and exit")
	return cmd
}

func runRelay(ctx context.Context, rootOpts *RootOptions, once bool) error {
	cfg := rootOpts.Config
	logger := rootOpts.Logger

	svc, err := services.NewServiceOptions(ctx, cfg, logger, services.Spanner|services.NATS)
	if err != nil {
		return err
	}
	defer svc.Close()
	relay := svc.Relay

	req := &relay_outbox.Request{BatchSize: cfg.Relay.BatchSize, MaxRetries: cfg.Relay.MaxRetries}

	logger.Info("relay started", "nats", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix, "interval", cfg.Relay.Interval)

	ticker := time.NewTicker(cfg.Relay.Interval)
	defer ticker.Stop()

	for {
		result, err := relay.Execute(ctx, req)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			logger.Error("relay pass failed", "error", err)
		case result.Published+result.Failed > 0:
			logger.Info("relay pass", "published", result.Published, "failed", result.Failed)
		}

		if once {
			return err
		}

		select {
		case <-ctx.Done():
			logger.Info("relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}
