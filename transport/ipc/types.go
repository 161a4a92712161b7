package ipc

import "errors"

type OpCode uint32

const (
	OpHandshake OpCode = 0
	OpFrame     OpCode = 1
	OpClose     OpCode = 2
	OpPing      OpCode = 3
	OpPong      OpCode = 4
)

func (op OpCode) String() string {
	switch op {
	case OpHandshake:
		return "HANDSHAKE"
	case OpFrame:
		return "FRAME"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

// Frame is one decoded wire message. Payload is JSON for handshake and frame opcodes.
type Frame struct {
	Opcode  OpCode
	Payload []byte
}

// State tracks the connection lifecycle. Only StateReady may send frames.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	default:
		return "disconnected"
	}
}

var (
	ErrMalformedFrame    = errors.New("ipc: malformed frame")
	ErrPayloadTooLarge   = errors.New("ipc: payload too large")
	ErrConnectionFailed  = errors.New("ipc: connection failed")
	ErrNotConnected      = errors.New("ipc: not connected")
	ErrHandshakeRejected = errors.New("ipc: handshake rejected")
)
