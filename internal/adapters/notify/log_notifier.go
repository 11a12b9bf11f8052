package notify

import (
	"context"
	"pickup-dispatch-service/internal/domain"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log. Used when no broker is
// configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, to domain.Identity, subject, body string) error {
	n.log.Info().
		Str("identity_id", to.ID.String()).
		Str("email", to.Email).
		Str("role", string(to.Role)).
		Str("subject", subject).
		Msg(body)
	return nil
}
