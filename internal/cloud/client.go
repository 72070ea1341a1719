// internal/cloud/client.go
package cloud

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var (
	// ErrNotConnected is returned when an operation requires a broker session.
	ErrNotConnected = errors.New("cloud: not connected")

	// ErrInvalidName is returned for empty or wildcard event names.
	ErrInvalidName = errors.New("cloud: invalid name")
)

// EventHandler receives an inbound cloud event.
type EventHandler func(eventName, data string)

// Function is a remote-invocable function. The int result is published back.
type Function func(arg string) int

// Config is the minimal broker session config.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	DeviceID    string
	TopicPrefix string
	QoS         byte

	ConnectTimeout time.Duration
	KeepAlive      time.Duration
	RetryInitial   time.Duration
	RetryMax       time.Duration

	// Will is published retained by the broker when the session dies.
	// Live publishes of WillEvent are retained too, so they replace it.
	WillEvent string
	WillData  string
}

// Client is a device session on the MQTT broker.
//
// Topic layout (per device):
//
//	<prefix>/<device>/events/<name>           outbound events
//	<prefix>/<device>/inbox/<name>            inbound subscriptions
//	<prefix>/<device>/functions/<name>        function invocations
//	<prefix>/<device>/functions/<name>/result function results
type Client struct {
	cfg    Config
	mc     paho.Client
	logger *zap.Logger

	mu    sync.Mutex
	subs  map[string]EventHandler
	funcs map[string]Function

	// last live value of WillEvent, replayed on reconnect over the broker's will
	lastState string
	hasState  bool
}

// New builds a client. It does not connect.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Broker == "" {
		return nil, errors.New("cloud: broker required")
	}
	if cfg.DeviceID == "" {
		return nil, errors.New("cloud: device id required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = cfg.DeviceID
	}

	c := newClient(cfg, nil, logger)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(false). // Connect owns startup retries
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.KeepAlive > 0 {
		opts.SetKeepAlive(cfg.KeepAlive)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.RetryMax > 0 {
		opts.SetMaxReconnectInterval(cfg.RetryMax)
	}
	if cfg.WillEvent != "" {
		opts.SetWill(c.EventTopic(cfg.WillEvent), cfg.WillData, cfg.QoS, true)
	}

	c.mc = paho.NewClient(opts)
	return c, nil
}

func newClient(cfg Config, mc paho.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		mc:     mc,
		logger: logger,
		subs:   make(map[string]EventHandler),
		funcs:  make(map[string]Function),
	}
}

// ---- topics ----

func (c *Client) base() string {
	return c.cfg.TopicPrefix + "/" + c.cfg.DeviceID
}

// EventTopic is the outbound topic for an event name.
func (c *Client) EventTopic(name string) string { return c.base() + "/events/" + name }

// InboxTopic is the inbound topic for a subscribed event name.
func (c *Client) InboxTopic(name string) string { return c.base() + "/inbox/" + name }

// FunctionTopic is the invocation topic for a function name.
func (c *Client) FunctionTopic(name string) string { return c.base() + "/functions/" + name }

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "#+")
}

// ---- lifecycle ----

// Connect opens the broker session, retrying with progressive delay until ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	op := func() (struct{}, error) {
		err := c.connectOnce(ctx)
		if err != nil && ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		return struct{}{}, err
	}
	notify := func(err error, next time.Duration) {
		c.logger.Warn("cloud connect failed, retrying",
			zap.Duration("in", next),
			zap.Error(err),
		)
	}

	bo := NewBackoff(c.cfg.RetryInitial, c.cfg.RetryMax)
	if _, err := backoff.Retry(ctx, op, retryForever(bo, notify)...); err != nil {
		return err
	}
	c.logger.Info("cloud connected", zap.String("broker", c.cfg.Broker))
	return nil
}

func (c *Client) connectOnce(ctx context.Context) error {
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}
	if err := wait(ctx, c.mc.Connect()); err != nil {
		return fmt.Errorf("cloud: connect %s: %w", c.cfg.Broker, err)
	}
	return nil
}

// Close disconnects, letting in-flight work finish for up to 250ms.
func (c *Client) Close() {
	if c.mc != nil && c.mc.IsConnected() {
		c.mc.Disconnect(250)
	}
}

// IsConnected reports whether the broker session is up.
func (c *Client) IsConnected() bool {
	return c.mc != nil && c.mc.IsConnected()
}

// ---- outbound ----

// PublishEvent publishes one named event.
func (c *Client) PublishEvent(ctx context.Context, name, data string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	retained := c.cfg.WillEvent != "" && name == c.cfg.WillEvent
	if err := c.publish(ctx, c.EventTopic(name), data, retained); err != nil {
		return err
	}
	if retained {
		c.mu.Lock()
		c.lastState, c.hasState = data, true
		c.mu.Unlock()
	}
	return nil
}

// Publish sends data on a raw topic, outside the device namespace.
func (c *Client) Publish(ctx context.Context, topic, data string) error {
	return c.publish(ctx, topic, data, false)
}

func (c *Client) publish(ctx context.Context, topic, data string, retained bool) error {
	if !validName(topic) {
		return fmt.Errorf("%w: %q", ErrInvalidName, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := wait(ctx, c.mc.Publish(topic, c.cfg.QoS, retained, data)); err != nil {
		return fmt.Errorf("cloud: publish %s: %w", topic, err)
	}
	return nil
}

// ---- inbound ----

// Subscribe registers a handler for an inbound event name.
// Subscriptions are (re)applied on every connect.
func (c *Client) Subscribe(name string, h EventHandler) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	c.mu.Lock()
	c.subs[name] = h
	c.mu.Unlock()

	if !c.IsConnected() {
		return nil
	}
	return c.subscribeEvent(name, h)
}

// RegisterFunction exposes fn as a remote-invocable function.
func (c *Client) RegisterFunction(name string, fn Function) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	c.mu.Lock()
	c.funcs[name] = fn
	c.mu.Unlock()

	if !c.IsConnected() {
		return nil
	}
	return c.subscribeFunction(name, fn)
}

func (c *Client) subscribeEvent(name string, h EventHandler) error {
	cb := func(_ paho.Client, m paho.Message) {
		h(name, string(m.Payload()))
	}
	tok := c.mc.Subscribe(c.InboxTopic(name), c.cfg.QoS, cb)
	if err := waitTimeout(tok, c.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("cloud: subscribe %s: %w", name, err)
	}
	return nil
}

func (c *Client) subscribeFunction(name string, fn Function) error {
	topic := c.FunctionTopic(name)
	cb := func(_ paho.Client, m paho.Message) {
		rc := fn(string(m.Payload()))
		// result publish runs off the paho callback goroutine
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
			defer cancel()
			if err := c.Publish(ctx, topic+"/result", strconv.Itoa(rc)); err != nil {
				c.logger.Warn("function result publish failed",
					zap.String("function", name),
					zap.Error(err),
				)
			}
		}()
	}
	tok := c.mc.Subscribe(topic, c.cfg.QoS, cb)
	if err := waitTimeout(tok, c.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("cloud: register function %s: %w", name, err)
	}
	return nil
}

// onConnect re-applies subscriptions; the session is clean on every connect.
func (c *Client) onConnect(_ paho.Client) {
	c.mu.Lock()
	subs := make(map[string]EventHandler, len(c.subs))
	for k, v := range c.subs {
		subs[k] = v
	}
	funcs := make(map[string]Function, len(c.funcs))
	for k, v := range c.funcs {
		funcs[k] = v
	}
	state, hasState := c.lastState, c.hasState
	c.mu.Unlock()

	if hasState {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
		err := c.publish(ctx, c.EventTopic(c.cfg.WillEvent), state, true)
		cancel()
		if err != nil {
			c.logger.Warn("state replay failed", zap.String("event", c.cfg.WillEvent), zap.Error(err))
		}
	}

	// paho runs this on its own goroutine; blocking waits are safe here
	// only when OrderMatters is false.
	for name, h := range subs {
		if err := c.subscribeEvent(name, h); err != nil {
			c.logger.Warn("resubscribe failed", zap.String("event", name), zap.Error(err))
		}
	}
	for name, fn := range funcs {
		if err := c.subscribeFunction(name, fn); err != nil {
			c.logger.Warn("function register failed", zap.String("function", name), zap.Error(err))
		}
	}
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("cloud connection lost", zap.Error(err))
}

// ---- token helpers ----

func (c *Client) timeout() time.Duration {
	if c.cfg.ConnectTimeout > 0 {
		return c.cfg.ConnectTimeout
	}
	return 10 * time.Second
}

func wait(ctx context.Context, t paho.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitTimeout(t paho.Token, d time.Duration) error {
	if d <= 0 {
		d = 10 * time.Second
	}
	if !t.WaitTimeout(d) {
		return context.DeadlineExceeded
	}
	return t.Error()
}
