package redis

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/gaborage/redisbridge/topology"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultKeepAlive   = 5 * time.Minute
)

// newDialer returns a dial function honouring connectTimeout, keepAlive and tcpNoDelay.
// When tlsCfg is set every connection is upgraded with a handshake bound by ctx.
func newDialer(s *topology.ServerConfig, tlsCfg *tls.Config) dialFunc {
	d := &net.Dialer{
		Timeout:   s.ConnectTimeout,
		KeepAlive: defaultKeepAlive,
	}
	if d.Timeout <= 0 {
		d.Timeout = defaultDialTimeout
	}
	if s.KeepAlive != nil && !*s.KeepAlive {
		d.KeepAlive = -1
	}
	noDelay := s.TCPNoDelay

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		if tcp, ok := conn.(*net.TCPConn); ok && noDelay != nil {
			if err := tcp.SetNoDelay(*noDelay); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}

		if tlsCfg == nil {
			return conn, nil
		}

		cfg := tlsCfg.Clone()
		if cfg.ServerName == "" {
			if host, _, splitErr := net.SplitHostPort(addr); splitErr == nil {
				cfg.ServerName = host
			}
		}

		hsCtx, cancel := context.WithTimeout(ctx, d.Timeout)
		defer cancel()

		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(hsCtx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
}
