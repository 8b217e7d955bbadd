package security

import (
	"fmt"
	"net"
	"syscall"
	"time"
)

// Control is a net.Dialer Control hook that rejects connections to blocked
// IPs. It sees the address after DNS resolution, so a host that resolves to
// a public IP at validation time and a private one at dial time is refused.
func (v *IPValidator) Control(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("invalid dial address %q: %w", address, err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("dial address %q is not an IP", address)
	}

	return v.Validate(ip)
}

// NewSafeDialer returns a dialer that refuses loopback, private, link-local,
// multicast and unspecified addresses
func NewSafeDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   NewIPValidator().Control,
	}
}
