package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// IsReachable reports whether a TCP connect to host:port completes within
// timeout. Errors are never returned.
func IsReachable(ctx context.Context, dialer Dialer, host string, port int, timeout time.Duration) bool {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
