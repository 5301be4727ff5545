package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
)

// ErrBrokerUnavailable is returned while the publisher waits out the
// cooldown after a failed dial.
var ErrBrokerUnavailable = errors.New("notification broker unavailable")

const (
	defaultDialTimeout = 2 * time.Second
	defaultCooldown    = 15 * time.Second
)

// Publisher sends notifications to a durable queue.  The connection is
// opened lazily and re-opened after the broker drops it.  After a failed
// dial no new dial is attempted until the cooldown has passed.
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger

	dialTimeout time.Duration
	cooldown    time.Duration
	now         func() time.Time

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	retryAfter time.Time
}

func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	return &Publisher{
		url:         url,
		queue:       queue,
		log:         log,
		dialTimeout: defaultDialTimeout,
		cooldown:    defaultCooldown,
		now:         time.Now,
	}
}

// Notify publishes n as a persistent JSON message.
func (p *Publisher) Notify(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(NewMessage(n, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         n.Event,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// channel returns an open channel, dialing when needed.  p.mu must be held.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.now().Before(p.retryAfter) {
		return nil, ErrBrokerUnavailable
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		p.retryAfter = p.now().Add(p.cooldown)
		p.log.Warn("notification broker unreachable", zap.Error(err), zap.Duration("retry_in", p.cooldown))
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Info("notification publisher connected", zap.String("queue", p.queue))
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close shuts the connection down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) {
			err = cerr
		}
	}
	p.ch, p.conn = nil, nil
	return err
}
