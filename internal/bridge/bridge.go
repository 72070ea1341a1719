// internal/bridge/bridge.go
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/tamzrod/ssh-relay/internal/cloud"
)

var errStreamClosed = errors.New("bridge: stream closed")

// Publisher sends one payload on a raw topic.
type Publisher interface {
	Publish(ctx context.Context, topic, data string) error
}

// Config is the minimal runtime config the bridge needs.
type Config struct {
	StreamURL    string
	AccessToken  string
	TopicPrefix  string
	RetryInitial time.Duration
	RetryMax     time.Duration
	Client       *http.Client
}

// Bridge republishes cloud event-stream payloads as per-key MQTT messages.
type Bridge struct {
	cfg    Config
	pub    Publisher
	logger *zap.Logger
}

func New(cfg Config, pub Publisher, logger *zap.Logger) (*Bridge, error) {
	if cfg.StreamURL == "" {
		return nil, errors.New("bridge: stream url required")
	}
	if pub == nil {
		return nil, errors.New("bridge: publisher required")
	}
	if cfg.Client == nil {
		// streaming response: no overall client timeout
		cfg.Client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{cfg: cfg, pub: pub, logger: logger}, nil
}

// Run streams until ctx is done, reconnecting with progressive delay.
// The delay restarts from its initial value after every successful connect.
func (b *Bridge) Run(ctx context.Context) error {
	bo := cloud.NewBackoff(b.cfg.RetryInitial, b.cfg.RetryMax)

	op := func() (struct{}, error) {
		err := b.streamOnce(ctx, bo)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errStreamClosed
		}
		return struct{}{}, err
	}
	notify := func(err error, next time.Duration) {
		b.logger.Warn("event stream ended, reconnecting",
			zap.Duration("in", next),
			zap.Error(err),
		)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	return err
}

func (b *Bridge) streamOnce(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.StreamURL, nil)
	if err != nil {
		return fmt.Errorf("bridge: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if b.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.AccessToken)
	}

	resp, err := b.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge: stream status %d", resp.StatusCode)
	}

	b.logger.Info("event stream connected")
	bo.Reset()

	return ReadFrames(resp.Body, func(f Frame) error {
		b.Handle(ctx, f)
		return ctx.Err()
	})
}

// Handle republishes one frame. Malformed frames are logged and skipped.
func (b *Bridge) Handle(ctx context.Context, f Frame) int {
	if strings.TrimSpace(f.Data) == "" {
		return 0
	}

	env, err := DecodeEnvelope(f.Data)
	if err != nil {
		b.logger.Debug("skipping frame", zap.String("event", f.Event), zap.Error(err))
		return 0
	}

	pairs, err := ExpandCompact(env.Data)
	if err != nil {
		b.logger.Debug("skipping payload",
			zap.String("event", f.Event),
			zap.String("data", env.Data),
			zap.Error(err),
		)
		return 0
	}

	sent := 0
	for _, kv := range pairs {
		topic := b.cfg.TopicPrefix + "/" + kv.Key
		if err := b.pub.Publish(ctx, topic, kv.Value); err != nil {
			b.logger.Warn("republish failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// compile-time check: the cloud client is a bridge publisher.
var _ Publisher = (*cloud.Client)(nil)
