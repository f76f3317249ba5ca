package stream

import "context"

// StreamConsumer pulls evaluation requests off a message stream and
// feeds them to the engine. Setup provisions the consumer group, Start
// blocks until the context is cancelled, Stop releases the connection.
type StreamConsumer interface {
	Setup(ctx context.Context) error
	Start(ctx context.Context) error
	Stop() error
}
