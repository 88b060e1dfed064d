package messaging

import (
	"context"
)

// Broker publishes delivery-report events for downstream consumers
// (dashboards, audit). Publishing is best-effort; the notifier never blocks
// a cycle on it.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}
