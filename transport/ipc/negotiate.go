package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	EndpointPrefix = "discord-ipc-"
	EndpointCount  = 10

	HandshakeVersion = 1
)

// CandidatePaths returns the ten endpoints the peer may listen on, in the
// order they are tried.
func CandidatePaths(base string) []string {
	paths := make([]string, 0, EndpointCount)
	for i := 0; i < EndpointCount; i++ {
		paths = append(paths, filepath.Join(base, EndpointPrefix+strconv.Itoa(i)))
	}
	return paths
}

// Dialer opens a raw stream to one candidate endpoint.
type Dialer func(ctx context.Context, path string) (net.Conn, error)

type negotiateOptions struct {
	dial        Dialer
	readTimeout time.Duration
	logger      zerolog.Logger
}

type Option func(*negotiateOptions)

func WithDialer(d Dialer) Option {
	return func(o *negotiateOptions) { o.dial = d }
}

// WithReadTimeout bounds every blocking read on the connection. Zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(o *negotiateOptions) { o.readTimeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *negotiateOptions) { o.logger = l }
}

type handshakePayload struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

// Handshake is the outcome of a successful negotiation.
type Handshake struct {
	Conn     *Conn
	Response []byte
}

// Negotiate walks candidates in order and returns the first connection that
// answers the handshake. Partial connections are always closed before moving
// on. When every candidate fails the returned error wraps ErrConnectionFailed.
func Negotiate(ctx context.Context, candidates []string, clientID string, opts ...Option) (*Handshake, error) {
	o := negotiateOptions{
		dial:   Dial,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var errs []error
	for i, path := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		hs, err := tryCandidate(ctx, o, path, clientID)
		if err != nil {
			o.logger.Debug().Int("candidate", i).Str("path", path).Err(err).Msg("ipc candidate failed")
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		o.logger.Info().Int("candidate", i).Str("path", path).Msg("ipc handshake complete")
		return hs, nil
	}
	return nil, fmt.Errorf("%w: %d candidates tried: %w", ErrConnectionFailed, len(candidates), errors.Join(errs...))
}

func tryCandidate(ctx context.Context, o negotiateOptions, path, clientID string) (*Handshake, error) {
	raw, err := o.dial(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	c := newConn(raw, path, o.readTimeout)
	c.setState(StateHandshaking)

	// the handshake read has no deadline of its own when readTimeout is 0,
	// so cancelling ctx closes the stream to unblock it
	stop := context.AfterFunc(ctx, func() { _ = raw.Close() })
	op, resp, err := handshake(c, clientID)
	if !stop() {
		_ = c.Close()
		return nil, fmt.Errorf("handshake: %w", ctx.Err())
	}
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if op == OpClose {
		_ = c.Close()
		return nil, fmt.Errorf("%w: %s", ErrHandshakeRejected, string(resp))
	}
	c.setState(StateReady)
	return &Handshake{Conn: c, Response: resp}, nil
}

func handshake(c *Conn, clientID string) (OpCode, []byte, error) {
	if err := c.SendOp(OpHandshake, handshakePayload{Version: HandshakeVersion, ClientID: clientID}); err != nil {
		return 0, nil, fmt.Errorf("handshake send: %w", err)
	}
	op, resp, err := c.Receive()
	if err != nil {
		return 0, nil, fmt.Errorf("handshake read: %w", err)
	}
	return op, resp, nil
}
