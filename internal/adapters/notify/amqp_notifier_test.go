package notify

import (
	"context"
	"encoding/json"
	"errors"
	"pickup-dispatch-service/internal/domain"
	"testing"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msgs     []amqp091.Publishing
	err      error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.exchange, c.key = exchange, key
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestAMQPNotifierPublishesJSON(t *testing.T) {
	ch := &recordingChannel{}
	n := NewAMQPNotifier(ch, "")
	who := domain.Identity{ID: uuid.New(), Name: "Dana", Email: "dana@resident.example", Role: domain.RoleResident}

	require.NoError(t, n.Notify(context.Background(), who, "We miss you", "hello"))

	assert.Equal(t, DefaultExchange, ch.exchange)
	assert.Equal(t, "notify.resident", ch.key)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, amqp091.Persistent, ch.msgs[0].DeliveryMode)

	var got Message
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &got))
	assert.Equal(t, who.ID.String(), got.IdentityID)
	assert.Equal(t, "dana@resident.example", got.Email)
	assert.Equal(t, "We miss you", got.Subject)
	assert.Equal(t, got.ID, ch.msgs[0].MessageId)
}

func TestAMQPNotifierWrapsPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	n := NewAMQPNotifier(&recordingChannel{err: boom}, "alerts")
	err := n.Notify(context.Background(), domain.Identity{ID: uuid.New(), Role: domain.RoleCollector}, "s", "b")
	assert.ErrorIs(t, err, boom)
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(zerolog.Nop())
	assert.NoError(t, n.Notify(context.Background(), domain.Identity{ID: uuid.New()}, "s", "b"))
}
