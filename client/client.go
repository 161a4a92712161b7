package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ffx64/nowplaying-rpc/transport/ipc"
	"github.com/rs/zerolog"
)

type Client struct {
	AppID string

	mu         sync.Mutex
	connecting bool
	transport  *ipc.Conn
	scheduler  *Scheduler
	cancel     context.CancelFunc

	logger      zerolog.Logger
	endpoints   []string
	dialer      ipc.Dialer
	readTimeout time.Duration
	cooldown    time.Duration
	metrics     Metrics

	// event callbacks (unexported fields)
	onReady func(map[string]any)
	onError func(error)
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithEndpoints replaces the default candidate sockets.
func WithEndpoints(paths []string) Option {
	return func(c *Client) { c.endpoints = paths }
}

func WithDialer(d ipc.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithReadTimeout bounds the wait for each peer reply. Zero waits forever.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Client) { c.readTimeout = d }
}

func WithClientCooldown(d time.Duration) Option {
	return func(c *Client) { c.cooldown = d }
}

func WithClientMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(appID string, opts ...Option) *Client {
	c := &Client{
		AppID:    appID,
		logger:   zerolog.Nop(),
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoints == nil {
		c.endpoints = ipc.CandidatePaths(ipc.DefaultBase())
	}
	return c
}

// SetVerbose raises the client logger to debug, which also dumps outgoing payloads.
func (c *Client) SetVerbose(v bool) {
	if v {
		c.logger = c.logger.Level(zerolog.DebugLevel)
	} else {
		c.logger = c.logger.Level(zerolog.InfoLevel)
	}
}

func (c *Client) OnReady(fn func(info map[string]any)) { c.onReady = fn }
func (c *Client) OnError(fn func(err error))           { c.onError = fn }

// Connect performs the handshake and starts the send scheduler. A failure
// is final for this client; build a new one to retry.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.transport != nil || c.connecting {
		c.mu.Unlock()
		return errors.New("already connected")
	}
	c.connecting = true
	c.mu.Unlock()

	opts := []ipc.Option{
		ipc.WithLogger(c.logger),
		ipc.WithReadTimeout(c.readTimeout),
	}
	if c.dialer != nil {
		opts = append(opts, ipc.WithDialer(c.dialer))
	}
	hs, err := ipc.Negotiate(ctx, c.endpoints, c.AppID, opts...)

	c.mu.Lock()
	c.connecting = false
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("dial ipc: %w", err)
	}
	c.transport = hs.Conn
	c.logger.Debug().Str("path", hs.Conn.Path()).Msg("connected to discord ipc")

	schedOpts := []SchedulerOption{
		WithCooldown(c.cooldown),
		WithSchedulerLogger(c.logger),
		WithErrorHandler(c.reportError),
	}
	if c.metrics != nil {
		schedOpts = append(schedOpts, WithMetrics(c.metrics))
	}
	c.scheduler = NewScheduler(SenderFunc(c.sendEnvelope), schedOpts...)
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.scheduler.Start(runCtx)
	c.mu.Unlock()

	c.handleHandshake(hs.Response)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.transport
	sched := c.scheduler
	cancel := c.cancel
	c.transport = nil
	c.scheduler = nil
	c.cancel = nil
	c.mu.Unlock()

	// closing the socket first unblocks a worker waiting on a reply
	var err error
	if conn != nil {
		err = conn.Close()
		c.logger.Debug().Msg("connection closed")
	}
	if sched != nil {
		sched.Close()
	}
	if cancel != nil {
		cancel()
	}
	return err
}

func (c *Client) State() ipc.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == nil {
		if c.connecting {
			return ipc.StateConnecting
		}
		return ipc.StateDisconnected
	}
	return c.transport.State()
}

// SetActivity queues act for the next send window. Only the most recent
// activity submitted before the window opens is transmitted. An activity with
// nothing to show is the same as ClearActivity.
func (c *Client) SetActivity(act Activity) error {
	c.mu.Lock()
	sched := c.scheduler
	c.mu.Unlock()
	if sched == nil {
		return ipc.ErrNotConnected
	}
	act = sanitize(act)
	if act.IsEmpty() {
		sched.Clear()
		return nil
	}
	sched.Submit(act)
	return nil
}

// ClearActivity removes the presence immediately and drops anything queued.
func (c *Client) ClearActivity() error {
	c.mu.Lock()
	sched := c.scheduler
	c.mu.Unlock()
	if sched == nil {
		return ipc.ErrNotConnected
	}
	sched.Clear()
	return nil
}

type responseDoc struct {
	Cmd  string         `json:"cmd"`
	Evt  string         `json:"evt"`
	Data map[string]any `json:"data"`
}

func (c *Client) handleHandshake(raw []byte) {
	var doc responseDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.Warn().Err(err).Msg("failed decode handshake response")
		return
	}
	if doc.Evt == "READY" {
		c.logger.Debug().Msg("event READY")
		if c.onReady != nil {
			c.onReady(doc.Data)
		}
	}
}

func (c *Client) sendEnvelope(env Envelope) error {
	c.mu.Lock()
	conn := c.transport
	c.mu.Unlock()
	if conn == nil || conn.State() != ipc.StateReady {
		return ipc.ErrNotConnected
	}

	if e := c.logger.Debug(); e.Enabled() {
		if b, err := json.Marshal(env); err == nil {
			e.RawJSON("payload", b).Msg("outgoing SET_ACTIVITY")
		}
	}

	raw, err := conn.Exchange(ipc.OpFrame, env)
	if err != nil {
		return fmt.Errorf("send %s: %w", env.Cmd, err)
	}

	var doc responseDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.Warn().Err(err).Msg("failed decode payload")
		return nil
	}
	if doc.Evt == "ERROR" {
		c.logger.Warn().Interface("data", doc.Data).Msg("peer rejected SET_ACTIVITY")
	}
	return nil
}

func (c *Client) reportError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}
