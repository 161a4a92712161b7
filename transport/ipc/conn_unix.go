//go:build !windows

package ipc

import (
	"context"
	"net"
	"os"
)

// DefaultBase resolves the directory holding the peer's sockets. The first
// non-empty runtime or temp directory variable wins.
func DefaultBase() string {
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return os.TempDir()
}

// Dial connects to a unix domain socket at path.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
