package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected — канал RabbitMQ недоступен.
var ErrNotConnected = errors.New("amqp channel is not available")

const (
	heartbeat       = 10 * time.Second
	minRedialDelay  = time.Second
	maxRedialDelay  = 30 * time.Second
	defaultConnName = "questionary"
)

// Connection — AMQP соединение с одним каналом и автоматическим redial.
//
// После восстановления соединения подписчики ReconnectNotify
// получают сигнал и заново настраивают consume.
type Connection struct {
	url    string
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool

	done        chan struct{}
	reconnected chan struct{}
}

// NewConnection подключается к RabbitMQ. name видно в management UI
// (connection_name); пустое — "questionary".
func NewConnection(url, name string, logger *slog.Logger) (*Connection, error) {
	if name == "" {
		name = defaultConnName
	}

	c := &Connection{
		url:         url,
		name:        name,
		logger:      logger,
		done:        make(chan struct{}),
		reconnected: make(chan struct{}, 1),
	}

	if err := c.dial(); err != nil {
		return nil, err
	}

	go c.supervise()

	return c, nil
}

func (c *Connection) dial() error {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(c.name)

	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()

	c.logger.Info("connected to rabbitmq", "connection_name", c.name)
	return nil
}

// supervise ждёт разрыва соединения и восстанавливает его.
func (c *Connection) supervise() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		lost := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return
		case err := <-lost:
			if err != nil {
				c.logger.Warn("rabbitmq connection lost", "error", err)
			}
		}

		if !c.redial() {
			return
		}

		select {
		case c.reconnected <- struct{}{}:
		default:
		}
	}
}

// redial повторяет dial с удвоением задержки. false — соединение закрыто.
func (c *Connection) redial() bool {
	delay := minRedialDelay
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		err := c.dial()
		if err == nil {
			return true
		}

		c.logger.Warn("rabbitmq redial failed", "error", err, "next_attempt_in", delay)
		delay = min(delay*2, maxRedialDelay)
	}
}

// ReconnectNotify сигналит после каждого восстановления соединения.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	return c.reconnected
}

// IsConnected возвращает true, если соединение открыто.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// WithChannel выполняет fn с текущим каналом.
// Пока соединение восстанавливается, возвращает ErrNotConnected.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	if ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}
	return fn(ch)
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	var errs []error
	if c.channel != nil && !c.channel.IsClosed() {
		errs = append(errs, c.channel.Close())
	}
	if c.conn != nil && !c.conn.IsClosed() {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}
