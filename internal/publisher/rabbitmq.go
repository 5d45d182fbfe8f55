package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"dreamclerk/internal/domain"
)

const (
	EventPostPublished  = "post.published"
	EventUserRegistered = "user.registered"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	postsKey   string
	signupsKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	QueueName  string
	PostsKey   string
	SignupsKey string
}

// NewRabbitMQ declares a durable direct exchange and binds one queue to it
// for both post and signup events.
func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(step string, err error) (*RabbitMQ, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}

	for _, key := range []string{cfg.PostsKey, cfg.SignupsKey} {
		if err := ch.QueueBind(q.Name, key, cfg.Exchange, false, nil); err != nil {
			return fail("bind queue", err)
		}
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"posts_key", cfg.PostsKey,
		"signups_key", cfg.SignupsKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		postsKey:   cfg.PostsKey,
		signupsKey: cfg.SignupsKey,
		logger:     logger,
	}, nil
}

type ArticleMessage struct {
	Event     string         `json:"event"`
	Article   domain.Article `json:"article"`
	Timestamp time.Time      `json:"timestamp"`
}

// RegistrationMessage carries no credentials and no date of birth.
type RegistrationMessage struct {
	Event        string                    `json:"event"`
	UserID       string                    `json:"user_id"`
	Name         string                    `json:"name"`
	Source       string                    `json:"source"`
	Status       domain.RegistrationStatus `json:"status"`
	RegisteredAt time.Time                 `json:"registered_at"`
	Timestamp    time.Time                 `json:"timestamp"`
}

func (r *RabbitMQ) PublishArticle(ctx context.Context, article *domain.Article) error {
	msg := ArticleMessage{
		Event:     EventPostPublished,
		Article:   *article,
		Timestamp: time.Now().UTC(),
	}
	if err := r.publish(ctx, r.postsKey, msg); err != nil {
		return err
	}

	r.logger.Debug("published article", "article_id", article.ID, "slug", article.Slug)
	return nil
}

func (r *RabbitMQ) PublishRegistration(ctx context.Context, rec *domain.RegistrationRecord) error {
	msg := RegistrationMessage{
		Event:        EventUserRegistered,
		UserID:       rec.UserID,
		Name:         rec.Name,
		Source:       rec.Source,
		Status:       rec.Status,
		RegisteredAt: rec.RegisteredAt,
		Timestamp:    time.Now().UTC(),
	}
	if err := r.publish(ctx, r.signupsKey, msg); err != nil {
		return err
	}

	r.logger.Debug("published registration", "user_id", rec.UserID)
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
