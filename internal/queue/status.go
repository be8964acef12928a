package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mahirjain10/image-handlers/internal/types"
	"github.com/mahirjain10/image-handlers/internal/utils"
	amqp "github.com/rabbitmq/amqp091-go"
)

const statusRoutingKey = "status"

// StatusPublisher sends the status of each handled record.
type StatusPublisher interface {
	Publish(ctx context.Context, message *types.StatusMessage) error
}

type ChannelPublisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

// NewChannelPublisher declares the direct exchange and returns a publisher
// that routes status messages through it.
func NewChannelPublisher(ch *amqp.Channel, exchange string) (*ChannelPublisher, error) {
	if err := DeclareExchange(ch, exchange); err != nil {
		return nil, err
	}
	return &ChannelPublisher{ch: ch, exchange: exchange}, nil
}

func (p *ChannelPublisher) Publish(parentCtx context.Context, message *types.StatusMessage) error {
	ctx, cancel := context.WithTimeout(parentCtx, 5*time.Second)
	defer cancel()

	serializedMessage, err := utils.SerializeJSON(message)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		statusRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        serializedMessage,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
