package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
)

// Publisher sends a payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

var _ adapter.SapClient = (*QueueClient)(nil)

// QueueClient hands ERP records to a message broker instead of calling the
// SAP integration service directly.
type QueueClient struct {
	pub        Publisher
	billingKey string
	partnerKey string
}

func NewQueueClient(pub Publisher, billingKey, partnerKey string) *QueueClient {
	return &QueueClient{pub: pub, billingKey: billingKey, partnerKey: partnerKey}
}

func (c *QueueClient) SendBilling(ctx context.Context, rec *model.SapBillingRecord, accountName string) error {
	b, err := json.Marshal(billingMessage{AccountName: accountName, SapBillingRecord: rec})
	if err != nil {
		return fmt.Errorf("encode billing record: %w", err)
	}
	return c.pub.Publish(ctx, c.billingKey, b)
}

func (c *QueueClient) SendBusinessPartner(ctx context.Context, bp *model.SapBusinessPartner) error {
	b, err := json.Marshal(bp)
	if err != nil {
		return fmt.Errorf("encode business partner: %w", err)
	}
	return c.pub.Publish(ctx, c.partnerKey, b)
}

// RabbitMQPublisher publishes persistent JSON messages to a direct exchange.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *zerolog.Logger
	mu       sync.Mutex
}

// NewRabbitMQPublisher declares the exchange and one durable queue per
// routing key, bound by the same name.
func NewRabbitMQPublisher(url, exchange string, queues []string, logger *zerolog.Logger) (*RabbitMQPublisher, error) {
	if exchange == "" {
		exchange = "billing.sap"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, exchange, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to bind queue %s: %w", q, err)
		}
	}
	logger.Info().Str("exchange", exchange).Strs("queues", queues).Msg("RabbitMQ publisher connected")
	return &RabbitMQPublisher{conn: conn, channel: ch, exchange: exchange, log: logger}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         payload,
		},
	)
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", routingKey).Msg("failed to publish message")
		return err
	}
	p.log.Debug().Str("routing_key", routingKey).Int("size", len(payload)).Msg("message published")
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn().Err(err).Msg("error closing channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopSapClient logs records instead of sending them. It is used when no
// SAP endpoint is configured.
type NoopSapClient struct {
	log *zerolog.Logger
}

func NewNoopSapClient(logger *zerolog.Logger) *NoopSapClient {
	return &NoopSapClient{log: logger}
}

func (c *NoopSapClient) SendBilling(ctx context.Context, rec *model.SapBillingRecord, accountName string) error {
	c.log.Debug().Int64("billing_credit_id", rec.BillingCreditID).Msg("noop sap billing push")
	return nil
}

func (c *NoopSapClient) SendBusinessPartner(ctx context.Context, bp *model.SapBusinessPartner) error {
	c.log.Debug().Int64("account_id", bp.ID).Msg("noop sap business partner push")
	return nil
}
