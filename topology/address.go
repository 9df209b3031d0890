package topology

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Address schemes. rediss:// enables TLS for the node.
const (
	SchemeRedis    = "redis://"
	SchemeRedisTLS = "rediss://"
)

var errMissingHost = errors.New("missing host")

// NormalizeAddress trims addr and prefixes it with redis:// unless it already starts
// with redis:// or rediss:// (case-insensitive). NormalizeAddress is idempotent.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if hasScheme(addr) {
		return addr
	}
	return SchemeRedis + addr
}

func hasScheme(addr string) bool {
	lower := strings.ToLower(addr)
	return strings.HasPrefix(lower, SchemeRedis) || strings.HasPrefix(lower, SchemeRedisTLS)
}

// Address is a parsed, normalized node address.
type Address struct {
	URL  string `yaml:"url" json:"url"`
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	TLS  bool   `yaml:"tls" json:"tls"`
}

// ParseAddress normalizes addr and splits it into host and port.
// A host and a numeric port in 1-65535 are required.
func ParseAddress(addr string) (Address, error) {
	normalized := NormalizeAddress(addr)

	u, err := url.Parse(normalized)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	host, rawPort, err := net.SplitHostPort(u.Host)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		return Address{}, fmt.Errorf("invalid address %q: %w", addr, errMissingHost)
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil || port < 1 || port > 65535 {
		return Address{}, fmt.Errorf("invalid address %q: port must be a number between 1 and 65535", addr)
	}

	return Address{
		URL:  normalized,
		Host: host,
		Port: port,
		TLS:  strings.EqualFold(u.Scheme, "rediss"),
	}, nil
}

// HostPort returns the dialable host:port form.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// String returns the normalized URL.
func (a Address) String() string {
	return a.URL
}

func parseAddresses(addrs []string) ([]Address, error) {
	out := make([]Address, 0, len(addrs))
	for _, addr := range addrs {
		parsed, err := ParseAddress(addr)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}
