package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange receives notification messages; mail workers bind to it.
const DefaultExchange = "notifications"

// publisher is the subset of *amqp091.Channel used for publishing.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Message is the JSON body published per notification.
type Message struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// AMQPNotifier publishes one persistent message per notification to a topic
// exchange, routed as notify.<role>.
type AMQPNotifier struct {
	mu       sync.Mutex
	ch       publisher
	exchange string
	closer   func() error
}

// DialAMQP connects to url, declares the exchange and returns a notifier that
// owns the connection.
func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	n := NewAMQPNotifier(ch, exchange)
	n.closer = func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return n, nil
}

func NewAMQPNotifier(ch publisher, exchange string) *AMQPNotifier {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &AMQPNotifier{ch: ch, exchange: exchange}
}

func (n *AMQPNotifier) Notify(ctx context.Context, to domain.Identity, subject, body string) error {
	msg := Message{
		ID:         uuid.NewString(),
		IdentityID: to.ID.String(),
		Name:       to.Name,
		Email:      to.Email,
		Role:       string(to.Role),
		Subject:    subject,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.ch.PublishWithContext(ctx,
		n.exchange,
		"notify."+string(to.Role),
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.CreatedAt,
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("publish notification to %s: %w", to.ID, err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
