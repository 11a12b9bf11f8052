package ports

import (
	"context"
	"pickup-dispatch-service/internal/domain"
)

// Notifier delivers a message to a single identity. Callers treat delivery as
// fire-and-forget: an error is logged and never retried.
type Notifier interface {
	Notify(ctx context.Context, to domain.Identity, subject, body string) error
}
