package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	HeaderLen = 8

	// DefaultMaxPayload bounds what ReadFrame will allocate for a single frame.
	DefaultMaxPayload = 10 * 1024 * 1024
)

// Encode builds the 8 byte little-endian header followed by payload.
func Encode(op OpCode, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// Decode parses a single frame from b. Trailing bytes beyond the declared
// length are ignored.
func Decode(b []byte) (Frame, error) {
	if len(b) < HeaderLen {
		return Frame{}, fmt.Errorf("%w: buffer too small (%d bytes)", ErrMalformedFrame, len(b))
	}
	op := OpCode(binary.LittleEndian.Uint32(b[0:4]))
	length := uint64(binary.LittleEndian.Uint32(b[4:8]))
	if length > uint64(len(b)-HeaderLen) {
		return Frame{}, fmt.Errorf("%w: frame length mismatch: expected %d got %d", ErrMalformedFrame, length, len(b)-HeaderLen)
	}
	payload := make([]byte, length)
	copy(payload, b[HeaderLen:HeaderLen+int(length)])
	return Frame{Opcode: op, Payload: payload}, nil
}

func EncodeFrameOp(op OpCode, payload any) ([]byte, error) {
	j, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return Encode(op, j)
}

// ReadFrame reads exactly one frame from r, rejecting payloads above max.
func ReadFrame(r io.Reader, max uint32) (Frame, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: short header", ErrMalformedFrame)
		}
		return Frame{}, err
	}
	op := OpCode(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > max {
		return Frame{}, fmt.Errorf("%w: invalid payload length %d", ErrMalformedFrame, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, fmt.Errorf("%w: short payload", ErrMalformedFrame)
		}
		return Frame{}, err
	}
	return Frame{Opcode: op, Payload: payload}, nil
}
