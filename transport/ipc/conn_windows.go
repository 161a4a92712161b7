//go:build windows

package ipc

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// DefaultBase is the named pipe namespace the peer listens in.
func DefaultBase() string {
	return `\\.\pipe`
}

// Dial opens the named pipe at path.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}
