package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/domain"
)

// DefaultChangesChannel is the pub/sub channel change events travel on.
const DefaultChangesChannel = "lendlog:changes"

// Notifier implements usecase.ChangeNotifier over Redis pub/sub so every
// server instance sees changes written by any other.
type Notifier struct {
	client  *redis.Client
	logger  zerolog.Logger
	channel string
}

// NewNotifier creates a Notifier on DefaultChangesChannel.
func NewNotifier(client *redis.Client, logger zerolog.Logger) *Notifier {
	return &Notifier{
		client:  client,
		logger:  logger,
		channel: DefaultChangesChannel,
	}
}

// Publish broadcasts event to all subscribers.
func (n *Notifier) Publish(ctx context.Context, event domain.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	return n.client.Publish(ctx, n.channel, data).Err()
}

// Subscribe calls onChange for every event until cancel is called or ctx
// is done. onChange runs on a single goroutine, in publish order.
func (n *Notifier) Subscribe(ctx context.Context, onChange func(domain.ChangeEvent)) (func() error, error) {
	sub := n.client.Subscribe(ctx, n.channel)

	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}

	var (
		once     sync.Once
		closeErr error
		done     = make(chan struct{})
	)
	cancel := func() error {
		once.Do(func() {
			close(done)
			closeErr = sub.Close()
		})
		return closeErr
	}

	messages := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = cancel()
				return
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var event domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					n.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed change event")
					continue
				}
				onChange(event)
			}
		}
	}()

	return cancel, nil
}
