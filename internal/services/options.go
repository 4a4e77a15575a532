package services

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/spanner"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/light-bringer/fieldwatch/internal/app/changed/reactions"
	"github.com/light-bringer/fieldwatch/internal/app/changed/repo"
	"github.com/light-bringer/fieldwatch/internal/app/changed/usecases/relay_outbox"
	"github.com/light-bringer/fieldwatch/internal/config"
	"github.com/light-bringer/fieldwatch/internal/pkg/clock"
	"github.com/light-bringer/fieldwatch/internal/pkg/committer"
)

// Dependency selects which connections NewServiceOptions opens.
type Dependency int

const (
	// Spanner opens the outbox database.
	Spanner Dependency = 1 << iota
	// NATS connects to JetStream and ensures the change stream exists.
	NATS
)

// ServiceOptions holds the connections and components shared by commands.
// Fields for dependencies that were not requested are nil.
type ServiceOptions struct {
	SpannerClient *spanner.Client
	NATSConn      *nats.Conn
	JetStream     jetstream.JetStream

	OutboxRepo     *repo.OutboxRepo
	Committer      *committer.Committer
	OutboxReaction *reactions.OutboxReaction
	NATSReaction   *reactions.NATSReaction

	// Relay is set when both Spanner and NATS were requested.
	Relay *relay_outbox.Interactor
}

// NewServiceOptions opens the requested dependencies and wires the
// components built on them.
func NewServiceOptions(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps Dependency) (*ServiceOptions, error) {
	s := &ServiceOptions{}
	clk := clock.NewRealClock()

	if deps&Spanner != 0 {
		client, err := spanner.NewClient(ctx, cfg.Store.SpannerDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to create Spanner client: %w", err)
		}
		s.SpannerClient = client
		s.OutboxRepo = repo.NewOutboxRepo(client)
		s.Committer = committer.NewCommitter(client)
		s.OutboxReaction = reactions.NewOutboxReaction(s.OutboxRepo, s.Committer, clk)
	}

	if deps&NATS != 0 {
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		s.NATSConn = nc

		js, err := jetstream.New(nc)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		if err := reactions.EnsureStream(ctx, js, cfg.NATS.SubjectPrefix); err != nil {
			s.Close()
			return nil, err
		}
		s.JetStream = js
		s.NATSReaction = reactions.NewNATSReaction(js, cfg.NATS.SubjectPrefix, clk)
	}

	if s.OutboxRepo != nil && s.JetStream != nil {
		s.Relay = relay_outbox.NewInteractor(s.OutboxRepo, s.JetStream, s.Committer, clk, cfg.NATS.SubjectPrefix, logger)
	}

	return s, nil
}

// Close closes all resources.
func (s *ServiceOptions) Close() {
	if s.NATSConn != nil {
		s.NATSConn.Close()
	}
	if s.SpannerClient != nil {
		s.SpannerClient.Close()
	}
}
