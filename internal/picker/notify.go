package picker

import (
	"context"
	"log/slog"
	"sync"
)

// Alert is a non-blocking, user-facing message about a single file.
type Alert struct {
	File       string
	Message    string
	Suggestion string
}

// Notifier surfaces picker outcomes to whoever is driving the selection.
type Notifier interface {
	// Alert reports a per-file failure; the batch keeps going.
	Alert(ctx context.Context, a Alert)
	// Retry asks the user to select again after the whole batch was discarded.
	Retry(ctx context.Context, message string)
}

// LogNotifier writes alerts and retry prompts to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Alert(ctx context.Context, a Alert) {
	n.logger().WarnContext(ctx, "file skipped", "file_name", a.File, "message", a.Message, "suggestion", a.Suggestion)
}

func (n LogNotifier) Retry(ctx context.Context, message string) {
	n.logger().WarnContext(ctx, "selection rejected", "message", message)
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// Collector records everything it is told so callers can report it later.
// It optionally forwards to Next.
type Collector struct {
	Next Notifier

	mu      sync.Mutex
	alerts  []Alert
	retries []string
}

func (c *Collector) Alert(ctx context.Context, a Alert) {
	c.mu.Lock()
	c.alerts = append(c.alerts, a)
	c.mu.Unlock()
	if c.Next != nil {
		c.Next.Alert(ctx, a)
	}
}

func (c *Collector) Retry(ctx context.Context, message string) {
	c.mu.Lock()
	c.retries = append(c.retries, message)
	c.mu.Unlock()
	if c.Next != nil {
		c.Next.Retry(ctx, message)
	}
}

func (c *Collector) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

func (c *Collector) Retries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.retries...)
}

// Reset forgets everything recorded so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.alerts, c.retries = nil, nil
	c.mu.Unlock()
}
