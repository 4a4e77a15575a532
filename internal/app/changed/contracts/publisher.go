package contracts

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher publishes messages to a JetStream subject.
// jetstream.JetStream satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}
