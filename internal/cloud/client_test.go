// internal/cloud/client_test.go
package cloud

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeToken struct {
	err  error
	done chan struct{}
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { <-t.done; return true }
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool { return false }
func (m fakeMessage) Qos() byte { return 0 }
func (m fakeMessage) Retained() bool { return false }
func (m fakeMessage) Topic() string { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte { return m.payload }
func (m fakeMessage) Ack() {}

type published struct {
	topic    string
	payload  string
	retained bool
}

type fakePaho struct {
	mu         sync.Mutex
	connected  bool
	connectErr []error
	connects   int
	published  []published
	subs       map[string]paho.MessageHandler
}

func newFakePaho() *fakePaho {
	return &fakePaho{subs: make(map[string]paho.MessageHandler)}
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
func (f *fakePaho) IsConnectionOpen() bool { return f.IsConnected() }

func (f *fakePaho) Connect() paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErr) > 0 {
		err := f.connectErr[0]
		f.connectErr = f.connectErr[1:]
		return doneToken(err)
	}
	f.connected = true
	return doneToken(nil)
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakePaho) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic: topic, payload: payload.(string), retained: retained})
	return doneToken(nil)
}

func (f *fakePaho) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = cb
	return doneToken(nil)
}

func (f *fakePaho) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return doneToken(nil)
}
func (f *fakePaho) Unsubscribe(...string) paho.Token { return doneToken(nil) }
func (f *fakePaho) AddRoute(string, paho.MessageHandler) {}
func (f *fakePaho) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

func (f *fakePaho) deliver(topic, payload string) {
	f.mu.Lock()
	cb := f.subs[topic]
	f.mu.Unlock()
	if cb != nil {
		cb(f, fakeMessage{topic: topic, payload: []byte(payload)})
	}
}

func (f *fakePaho) publishedSnapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

func testConfig() Config {
	return Config{
		Broker:         "tcp://broker:1883",
		DeviceID:       "relay-01",
		TopicPrefix:    "particle",
		ConnectTimeout: time.Second,
		RetryInitial:   time.Millisecond,
		RetryMax:       4 * time.Millisecond,
	}
}

// ---- tests ----

func TestTopics(t *testing.T) {
	c := newClient(testConfig(), newFakePaho(), nil)

	assert.Equal(t, "particle/relay-01/events/status", c.EventTopic("status"))
	assert.Equal(t, "particle/relay-01/inbox/spark/device/ip", c.InboxTopic("spark/device/ip"))
	assert.Equal(t, "particle/relay-01/functions/get_ip", c.FunctionTopic("get_ip"))
}

func TestConnect_RetriesUntilSuccess(t *testing.T) {
	fp := newFakePaho()
	fp.connectErr = []error{errors.New("refused"), errors.New("refused")}
	c := newClient(testConfig(), fp, nil)

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 3, fp.connects)
	assert.True(t, c.IsConnected())
}

func TestConnect_StopsOnCancel(t *testing.T) {
	fp := newFakePaho()
	for i := 0; i < 1000; i++ {
		fp.connectErr = append(fp.connectErr, errors.New("refused"))
	}
	c := newClient(testConfig(), fp, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublishEvent(t *testing.T) {
	fp := newFakePaho()
	c := newClient(testConfig(), fp, nil)

	err := c.PublishEvent(context.Background(), "status", "2")
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.PublishEvent(context.Background(), "status", "2"))

	got := fp.publishedSnapshot()
	require.Len(t, got, 1)
	assert.Equal(t, published{topic: "particle/relay-01/events/status", payload: "2"}, got[0])
}

func TestPublishEvent_RejectsWildcards(t *testing.T) {
	c := newClient(testConfig(), newFakePaho(), nil)

	for _, name := range []string{"", "a/#", "+/b"} {
		err := c.PublishEvent(context.Background(), name, "x")
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestSubscribe_AppliedOnConnect(t *testing.T) {
	fp := newFakePaho()
	c := newClient(testConfig(), fp, nil)

	var gotName, gotData string
	require.NoError(t, c.Subscribe("spark/device/ip", func(name, data string) {
		gotName, gotData = name, data
	}))

	// not yet connected: nothing on the wire
	assert.Empty(t, fp.subs)

	require.NoError(t, c.Connect(context.Background()))
	c.onConnect(fp)

	fp.deliver("particle/relay-01/inbox/spark/device/ip", "203.0.113.7")
	assert.Equal(t, "spark/device/ip", gotName)
	assert.Equal(t, "203.0.113.7", gotData)
}

func TestRegisterFunction_PublishesResult(t *testing.T) {
	fp := newFakePaho()
	c := newClient(testConfig(), fp, nil)
	require.NoError(t, c.Connect(context.Background()))

	called := make(chan string, 1)
	require.NoError(t, c.RegisterFunction("get_ip", func(arg string) int {
		called <- arg
		return -1
	}))

	fp.deliver("particle/relay-01/functions/get_ip", "now")
	assert.Equal(t, "now", <-called)

	require.Eventually(t, func() bool {
		for _, p := range fp.publishedSnapshot() {
			if p.topic == "particle/relay-01/functions/get_ip/result" && p.payload == "-1" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestBackoff_DoublesToMax(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 35*time.Millisecond)

	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 35*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 35*time.Millisecond, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
}

func TestNew_WillIsRetained(t *testing.T) {
	cfg := testConfig()
	cfg.WillEvent, cfg.WillData = "status", "1"

	c, err := New(cfg, nil)
	require.NoError(t, err)

	opts := c.mc.OptionsReader()
	assert.True(t, opts.WillEnabled())
	assert.Equal(t, "particle/relay-01/events/status", opts.WillTopic())
	assert.Equal(t, []byte("1"), opts.WillPayload())
	assert.True(t, opts.WillRetained())
}

func TestPublishEvent_StatusRetainedOverWill(t *testing.T) {
	fp := newFakePaho()
	cfg := testConfig()
	cfg.WillEvent, cfg.WillData = "status", "1"
	c := newClient(cfg, fp, nil)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.PublishEvent(context.Background(), "status", "2"))
	require.NoError(t, c.PublishEvent(context.Background(), "attempts", "4"))

	got := fp.publishedSnapshot()
	require.Len(t, got, 2)
	assert.Equal(t, published{topic: "particle/relay-01/events/status", payload: "2", retained: true}, got[0])
	assert.Equal(t, published{topic: "particle/relay-01/events/attempts", payload: "4"}, got[1])
}

func TestOnConnect_ReplaysLastStatus(t *testing.T) {
	fp := newFakePaho()
	cfg := testConfig()
	cfg.WillEvent, cfg.WillData = "status", "1"
	c := newClient(cfg, fp, nil)
	require.NoError(t, c.Connect(context.Background()))

	// nothing to replay before the first live status
	c.onConnect(fp)
	assert.Empty(t, fp.publishedSnapshot())

	require.NoError(t, c.PublishEvent(context.Background(), "status", "3"))
	c.onConnect(fp)

	got := fp.publishedSnapshot()
	require.Len(t, got, 2)
	assert.Equal(t, published{topic: "particle/relay-01/events/status", payload: "3", retained: true}, got[1])
}

func TestPublish_RawTopic(t *testing.T) {
	fp := newFakePaho()
	c := newClient(testConfig(), fp, nil)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Publish(context.Background(), "particle/temp", "21"))
	assert.ErrorIs(t, c.Publish(context.Background(), "particle/#", "21"), ErrInvalidName)

	got := fp.publishedSnapshot()
	require.Len(t, got, 1)
	assert.Equal(t, published{topic: "particle/temp", payload: "21"}, got[0])
}
