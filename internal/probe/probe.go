// Package probe learns the online player count of a running game server
// without any cooperation from it, using the server list ping (modern and
// legacy framing over TCP) and the optional UDP query protocol.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/rusenback/idlemon/internal/model"
)

// Dialer opens the short-lived sockets used by every method.
// *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds the per-method timeouts
type Config struct {
	PortTimeout       time.Duration
	ConnectTimeout    time.Duration
	ModernReadTimeout time.Duration
	LegacyReadTimeout time.Duration
	QueryTimeout      time.Duration
	ProtocolVersion   int
	// QueryPort is the UDP query port. Zero means the game port.
	QueryPort int
}

func DefaultConfig() Config {
	return Config{
		PortTimeout:       3 * time.Second,
		ConnectTimeout:    5 * time.Second,
		ModernReadTimeout: 6 * time.Second,
		LegacyReadTimeout: 3 * time.Second,
		QueryTimeout:      5 * time.Second,
		ProtocolVersion:   47,
	}
}

// serverStatus is the success value of a single method
type serverStatus struct {
	Online int
	Max    int
}

type method struct {
	kind model.ProbeMethod
	run  func(ctx context.Context, host string, port int) (serverStatus, error)
}

// Prober tries each protocol in order and returns the first answer
type Prober struct {
	cfg     Config
	dialer  Dialer
	logger  *slog.Logger
	methods []method
}

// New creates a prober. A nil dialer uses net.Dialer, a nil logger slog.Default().
func New(cfg Config, dialer Dialer, logger *slog.Logger) *Prober {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Prober{cfg: cfg, dialer: dialer, logger: logger}
	p.methods = []method{
		{kind: model.MethodModern, run: p.modern},
		{kind: model.MethodLegacy, run: p.legacy},
		{kind: model.MethodQuery, run: p.query},
	}
	return p
}

// Probe never fails: every socket or parse error downgrades to "try the next
// method", and Unknown is returned when all of them fail or the port is closed.
func (p *Prober) Probe(ctx context.Context, host string, port int) model.ProbeResult {
	if !IsReachable(ctx, p.dialer, host, port, p.cfg.PortTimeout) {
		p.logger.Warn("game port not reachable", "host", host, "port", port)
		return model.Unknown
	}
	p.logger.Debug("game port open, trying protocols", "host", host, "port", port)

	for _, m := range p.methods {
		if ctx.Err() != nil {
			return model.Unknown
		}
		st, err := m.run(ctx, host, port)
		if err != nil {
			p.logger.Debug("probe method failed", "method", m.kind, "error", err)
			continue
		}
		p.logger.Info("probe succeeded", "method", m.kind, "online", st.Online, "max", st.Max)
		return model.Found(m.kind, st.Online, st.Max)
	}

	p.logger.Warn("all probe methods failed", "host", host, "port", port)
	return model.Unknown
}

func (p *Prober) dial(ctx context.Context, network, host string, port int) (net.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dctx, network, net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", network, err)
	}
	return conn, nil
}

// readDeadline is now+timeout, clamped to the context deadline
func readDeadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
