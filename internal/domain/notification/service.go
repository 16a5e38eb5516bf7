package notification

import "context"

// Notifier delivers status events. Delivery is fire-and-forget: failures are
// logged by the implementation and never reported to the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}
