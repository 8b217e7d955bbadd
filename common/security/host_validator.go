package security

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// LookupFunc resolves a hostname to IP addresses
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

// HostValidator validates hostnames and IPs for SSRF protection
type HostValidator struct {
	blockedHostnames []string
	ipValidator      *IPValidator
	lookup           LookupFunc
}

// NewHostValidator creates a new host validator with default blocked hosts
func NewHostValidator() *HostValidator {
	return &HostValidator{
		blockedHostnames: []string{
			"localhost",
			"0.0.0.0",
			"::",
			"::1",
			"metadata.google.internal",
		},
		ipValidator: NewIPValidator(),
		lookup:      defaultLookup,
	}
}

// WithLookup replaces DNS resolution, mainly for tests
func (v *HostValidator) WithLookup(lookup LookupFunc) *HostValidator {
	v.lookup = lookup
	return v
}

// Validate checks if the hostname is safe to connect to
func (v *HostValidator) Validate(ctx context.Context, hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname is required")
	}

	normalizedHost := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")

	for _, blocked := range v.blockedHostnames {
		if normalizedHost == blocked || strings.HasSuffix(normalizedHost, ".localhost") {
			return fmt.Errorf("hostname '%s' is blocked (SSRF protection: localhost access)", hostname)
		}
	}

	if ip := net.ParseIP(normalizedHost); ip != nil {
		return v.ipValidator.Validate(ip)
	}

	ips, err := v.lookup(ctx, normalizedHost)
	if err != nil {
		// The fetch itself will fail on an unresolvable host.
		return nil
	}

	return v.ipValidator.ValidateAll(ips)
}

func defaultLookup(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}
