// Package notify sends batched notifications to customers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrDispatchFailed wraps any transport error. Sends are not retried.
var ErrDispatchFailed = errors.New("notification dispatch failed")

// Message is one outbound mail addressed to every recipient in To.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Transport delivers a message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

type Dispatcher struct {
	transport Transport
	from      string
	logger    *slog.Logger
}

func NewDispatcher(transport Transport, from string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{transport: transport, from: from, logger: logger}
}

// SendBatch builds a single message for all recipients and hands it to the
// transport once.
func (d *Dispatcher) SendBatch(ctx context.Context, subject, message string, recipients []string) error {
	msg := Message{
		From:    d.from,
		To:      append([]string(nil), recipients...),
		Subject: subject,
		Body:    message,
	}
	if err := d.transport.Send(ctx, msg); err != nil {
		d.logger.Error("notification dispatch failed", "recipients", len(recipients), "error", err)
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	d.logger.Info("notification dispatched", "recipients", len(recipients), "subject", subject)
	return nil
}
