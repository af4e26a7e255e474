package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/types"
)

// Config configures the RabbitMQ publisher
type Config struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// RabbitMQ publishes events to a durable topic exchange
type RabbitMQ struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRabbitMQ dials the broker and declares the exchange
func NewRabbitMQ(cfg Config, logger *zerolog.Logger) (*RabbitMQ, error) {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "publisher").Logger()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "review-service.events"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	l.Info().Str("exchange", cfg.Exchange).Msg("Connected to RabbitMQ")
	return &RabbitMQ{conn: conn, channel: ch, exchange: cfg.Exchange, now: time.Now, logger: l}, nil
}

// RankingUpdated publishes a ranking.updated event
func (r *RabbitMQ) RankingUpdated(ctx context.Context, rk types.Ranking) error {
	return publish(ctx, r, RouteRankingUpdated, Event[types.Ranking]{
		Type:       RouteRankingUpdated,
		BusinessID: rk.BusinessID,
		Data:       rk,
		Timestamp:  r.now().UTC(),
	})
}

// AchievementAwarded publishes an achievement.awarded event
func (r *RabbitMQ) AchievementAwarded(ctx context.Context, a types.Achievement) error {
	return publish(ctx, r, RouteAchievementAwarded, Event[types.Achievement]{
		Type:       RouteAchievementAwarded,
		BusinessID: a.BusinessID,
		Data:       a,
		Timestamp:  r.now().UTC(),
	})
}

func publish[T any](ctx context.Context, r *RabbitMQ, routingKey string, ev Event[T]) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	err = r.channel.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    ev.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	r.logger.Debug().Str("routing_key", routingKey).Str("business_id", ev.BusinessID).Msg("Event published")
	return nil
}

// Close closes the channel and connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
