package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/app/changed/reactions"
	"github.com/light-bringer/fieldwatch/internal/config"
	"github.com/light-bringer/fieldwatch/internal/services"
)

// Reaction sinks the CLI can bind configured reaction names to.
const (
	SinkLog    = "log"
	SinkNATS   = "nats"
	SinkOutbox = "outbox"
)

type sink struct {
	react        contracts.Reaction
	reactDefault contracts.DefaultReaction
	close        func()
}

func openSink(ctx context.Context, name string, cfg *config.Config, logger *slog.Logger, out io.Writer) (*sink, error) {
	switch name {
	case SinkLog:
		return logSink(logger, out), nil

	case SinkNATS:
		svc, err := services.NewServiceOptions(ctx, cfg, logger, services.NATS)
		if err != nil {
			return nil, err
		}
		r := svc.NATSReaction
		return &sink{react: r.React, reactDefault: r.ReactDefault, close: svc.Close}, nil

	case SinkOutbox:
		svc, err := services.NewServiceOptions(ctx, cfg, logger, services.Spanner)
		if err != nil {
			return nil, err
		}
		r := svc.OutboxReaction
		return &sink{react: r.React, reactDefault: r.ReactDefault, close: svc.Close}, nil
	}
	return nil, fmt.Errorf("unknown sink %q: must be one of %s, %s, %s", name, SinkLog, SinkNATS, SinkOutbox)
}

// logSink logs every change and prints it to out. Reactions run
// concurrently, so writes to out are serialised.
func logSink(logger *slog.Logger, out io.Writer) *sink {
	var mu sync.Mutex
	return &sink{
		react: func(ctx context.Context, changes *domain.ChangeSet) error {
			op, _ := domain.OperationFromContext(ctx)
			logger.InfoContext(ctx, "field changed",
				"operation_id", op.ID,
				"model", op.Model,
				"field", changes.Field(),
				"ids", changes.IDs(),
			)
			mu.Lock()
			defer mu.Unlock()
			for _, id := range changes.IDs() {
				v, _ := changes.Value(id)
				fmt.Fprintf(out, "%s.%s[%s] = %v\n", op.Model, changes.Field(), id, v)
			}
			return nil
		},
		reactDefault: func(ctx context.Context, ids []string) error {
			op, _ := domain.OperationFromContext(ctx)
			logger.InfoContext(ctx, "records changed", "operation_id", op.ID, "model", op.Model, "ids", ids)
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s changed: %v\n", op.Model, ids)
			return nil
		},
		close: func() {},
	}
}

// bindReactions registers the sink under every reaction name spec uses.
func bindReactions(registry *reactions.Registry, spec *domain.WatchSpec, s *sink) error {
	usesDefault := false
	for _, w := range spec.Watches() {
		if w.Default {
			usesDefault = true
			continue
		}
		if registry.Has(w.Reaction) {
			continue
		}
		if err := registry.Register(w.Reaction, s.react); err != nil {
			return err
		}
	}
	if usesDefault && !registry.Has(spec.DefaultReaction()) {
		return registry.RegisterDefault(spec.DefaultReaction(), s.reactDefault)
	}
	return nil
}
