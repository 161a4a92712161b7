package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is a handshaken connection to the peer. After Negotiate returns it,
// a single owner is expected to drive SendOp/Receive; the mutex only guards
// Close racing with a write.
type Conn struct {
	conn        net.Conn
	mu          sync.Mutex
	reader      *bufio.Reader
	state       atomic.Int32
	path        string
	readTimeout time.Duration
	maxPayload  uint32
}

func newConn(c net.Conn, path string, readTimeout time.Duration) *Conn {
	cn := &Conn{
		conn:        c,
		reader:      bufio.NewReader(c),
		path:        path,
		readTimeout: readTimeout,
		maxPayload:  DefaultMaxPayload,
	}
	cn.setState(StateConnecting)
	return cn
}

func (c *Conn) setState(s State) { c.state.Store(int32(s)) }

func (c *Conn) State() State { return State(c.state.Load()) }

// Path is the endpoint the connection was established on.
func (c *Conn) Path() string { return c.path }

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateDisconnected {
		return nil
	}
	c.setState(StateDisconnected)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Conn) SendRaw(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateDisconnected {
		return errors.New("connection closed")
	}
	_, err := c.conn.Write(b)
	return err
}

// SendOp encodes payload as JSON and writes it. Frame opcodes require the
// connection to be Ready; the handshake opcode does not.
func (c *Conn) SendOp(op OpCode, payload any) error {
	if op != OpHandshake && c.State() != StateReady {
		return ErrNotConnected
	}
	data, err := EncodeFrameOp(op, payload)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

func (c *Conn) Receive() (OpCode, json.RawMessage, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, nil, err
		}
	}
	f, err := ReadFrame(c.reader, c.maxPayload)
	if err != nil {
		return 0, nil, err
	}
	return f.Opcode, json.RawMessage(f.Payload), nil
}

// Exchange writes one frame and drains exactly one response. A malformed
// response or a CLOSE from the peer tears the connection down.
func (c *Conn) Exchange(op OpCode, payload any) (json.RawMessage, error) {
	if err := c.SendOp(op, payload); err != nil {
		if !errors.Is(err, ErrNotConnected) {
			_ = c.Close()
		}
		return nil, err
	}
	rop, raw, err := c.Receive()
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("read response: %w", err)
	}
	if rop == OpClose {
		_ = c.Close()
		return raw, fmt.Errorf("%w: peer closed: %s", ErrNotConnected, string(raw))
	}
	return raw, nil
}
