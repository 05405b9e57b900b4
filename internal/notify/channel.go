package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rewardscope/internal/model"
)

// EventKind identifies a push event type.
type EventKind string

const (
	EventNewReferral    EventKind = "new_referral"
	EventRewardEarned   EventKind = "reward_earned"
	EventReferralUpdate EventKind = "referral_update"
)

// Event is one push notification. The channel is a dumb relay: it hands
// events to subscribers and never touches reward state itself.
type Event struct {
	Kind    EventKind       `json:"event"`
	Owner   string          `json:"address,omitempty"`
	ChainID uint64          `json:"chain_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler receives dispatched events.
type Handler func(Event)

// Config holds channel settings. Reconnects use a fixed delay and a
// bounded attempt count; there is no backoff or jitter.
type Config struct {
	URL         string
	DialTimeout time.Duration
	RetryDelay  time.Duration
	MaxRetries  int
}

// Channel is a reconnecting websocket subscription client. It is
// explicitly constructed and injected; there is no package-level
// instance.
type Channel struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closing   bool
	started   bool
	address   string
	subs      map[EventKind]map[int]Handler
	nextSubID int

	degraded     chan struct{}
	degradedOnce sync.Once
	closed       chan struct{}
	done         chan struct{}
}

// NewChannel builds a channel; Connect must be called before events flow.
func NewChannel(cfg Config, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Channel{
		cfg:      cfg,
		logger:   logger,
		subs:     make(map[EventKind]map[int]Handler),
		degraded: make(chan struct{}),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Connect dials the push endpoint for an address and starts the read
// loop. A channel that has degraded or been disconnected cannot be
// dialed again; build a fresh one instead.
func (c *Channel) Connect(ctx context.Context, address string) error {
	if c.cfg.URL == "" {
		return fmt.Errorf("channel url is required")
	}

	select {
	case <-c.degraded:
		return model.ErrChannelDegraded
	default:
	}

	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if closing {
		return fmt.Errorf("channel is closed")
	}

	endpoint, err := c.endpointFor(address)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial push channel: %w", err)
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("channel is closed")
	}
	c.conn = conn
	c.connected = true
	c.started = true
	c.address = address
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

func (c *Channel) endpointFor(address string) (string, error) {
	parsed, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse channel url: %w", err)
	}
	query := parsed.Query()
	query.Set("address", address)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Subscribe registers a handler for an event kind and returns its
// unsubscribe function.
func (c *Channel) Subscribe(kind EventKind, handler Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs[kind] == nil {
		c.subs[kind] = make(map[int]Handler)
	}
	c.nextSubID++
	id := c.nextSubID
	c.subs[kind][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[kind], id)
	}
}

// IsConnected reports whether the channel currently has a live
// connection.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Degraded is closed once reconnect attempts are exhausted; callers
// should then fall back to polling.
func (c *Channel) Degraded() <-chan struct{} {
	return c.degraded
}

// Disconnect closes the connection and waits for the read loop to stop,
// including one paused between reconnect attempts. A disconnected
// channel stays closed; build a fresh one to reconnect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.closing = true
	conn := c.conn
	started := c.started
	c.connected = false
	c.mu.Unlock()

	close(c.closed)
	if conn != nil {
		conn.Close()
	}
	if started {
		<-c.done
	}
}

func (c *Channel) readLoop() {
	defer close(c.done)

	for {
		c.mu.Lock()
		conn := c.conn
		closing := c.closing
		c.mu.Unlock()

		if closing || conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closing = c.closing
			c.connected = false
			c.mu.Unlock()
			if closing {
				return
			}
			if !c.reconnect() {
				return
			}
			continue
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			c.logger.Warn("malformed push event", zap.Error(err))
			continue
		}
		c.dispatch(event)
	}
}

// reconnect retries with a fixed delay up to the configured attempt
// count. Returns false once attempts are exhausted, after marking the
// channel degraded.
func (c *Channel) reconnect() bool {
	c.mu.Lock()
	address := c.address
	c.mu.Unlock()

	endpoint, err := c.endpointFor(address)
	if err != nil {
		c.markDegraded()
		return false
	}

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		timer := time.NewTimer(c.cfg.RetryDelay)
		select {
		case <-c.closed:
			timer.Stop()
			return false
		case <-timer.C:
		}

		dialCtx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
		cancel()
		if err != nil {
			c.logger.Warn("push channel reconnect failed",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.cfg.MaxRetries),
				zap.Error(err),
			)
			continue
		}

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			conn.Close()
			return false
		}
		c.conn = conn
		c.connected = true
		c.mu.Unlock()

		c.logger.Info("push channel reconnected", zap.Int("attempt", attempt))
		return true
	}

	c.markDegraded()
	return false
}

func (c *Channel) markDegraded() {
	c.degradedOnce.Do(func() {
		c.logger.Warn("push channel degraded, reconnect attempts exhausted",
			zap.Int("max_retries", c.cfg.MaxRetries),
		)
		close(c.degraded)
	})
}

func (c *Channel) dispatch(event Event) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subs[event.Kind]))
	for _, handler := range c.subs[event.Kind] {
		handlers = append(handlers, handler)
	}
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}
