// Package notify delivers run alerts to a chat channel.
package notify

import "context"

// Notifier sends one formatted message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// NopNotifier discards messages. Used when alerts are disabled.
type NopNotifier struct{}

// Send does nothing.
func (NopNotifier) Send(context.Context, string) error { return nil }

var _ Notifier = NopNotifier{}
