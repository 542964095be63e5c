// Package notify delivers short user-facing messages. Delivery is fire and
// forget: failures are logged, never surfaced to the operation that
// triggered them.
package notify

import "context"

type Notifier interface {
	// Send delivers text to the user's chat. Best effort.
	Send(ctx context.Context, chatID int64, text string)
}

// Nop discards notifications. Used when no token is configured and in tests.
type Nop struct{}

func (Nop) Send(context.Context, int64, string) {}
