package security

import (
	"fmt"
	"net"
)

// IPValidator validates IP addresses for security
type IPValidator struct{}

// NewIPValidator creates a new IP validator
func NewIPValidator() *IPValidator {
	return &IPValidator{}
}

// Validate checks if an IP address is safe to connect to
// Blocks: loopback, private networks, link-local, multicast, unspecified
func (v *IPValidator) Validate(ip net.IP) error {
	if ip == nil {
		return fmt.Errorf("IP address is nil")
	}

	if ip.IsLoopback() {
		return fmt.Errorf("IP %s is blocked (SSRF protection: loopback address)", ip.String())
	}

	// 10/8, 172.16/12, 192.168/16, fc00::/7
	if ip.IsPrivate() {
		return fmt.Errorf("IP %s is blocked (SSRF protection: private network)", ip.String())
	}

	// 169.254/16 covers cloud metadata services
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("IP %s is blocked (SSRF protection: link-local address)", ip.String())
	}

	if ip.IsMulticast() {
		return fmt.Errorf("IP %s is blocked (SSRF protection: multicast address)", ip.String())
	}

	if ip.IsUnspecified() {
		return fmt.Errorf("IP %s is blocked (SSRF protection: unspecified address)", ip.String())
	}

	return nil
}

// ValidateAll checks all IPs in a list
func (v *IPValidator) ValidateAll(ips []net.IP) error {
	if len(ips) == 0 {
		return fmt.Errorf("no IP addresses to validate")
	}

	for _, ip := range ips {
		if err := v.Validate(ip); err != nil {
			return err
		}
	}

	return nil
}
