package security

import (
	"context"
	"fmt"
	"net/url"
)

// URLValidator runs every check an origin endpoint must pass before the
// service connects to it. Origin URLs come from DID documents, which are
// controlled by whoever registered the identity.
type URLValidator struct {
	protocolValidator *ProtocolValidator
	hostValidator     *HostValidator
	pathValidator     *PathValidator
}

// NewURLValidator creates a new URL validator with all security checks
func NewURLValidator() *URLValidator {
	return &URLValidator{
		protocolValidator: NewProtocolValidator(),
		hostValidator:     NewHostValidator(),
		pathValidator:     NewPathValidator(),
	}
}

// Validate checks protocol, hostname/IP (SSRF) and path
func (v *URLValidator) Validate(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if err := v.protocolValidator.Validate(parsedURL.Scheme); err != nil {
		return fmt.Errorf("protocol validation failed: %w", err)
	}

	if parsedURL.User != nil {
		return fmt.Errorf("URL must not carry credentials")
	}

	if err := v.hostValidator.Validate(ctx, parsedURL.Hostname()); err != nil {
		return fmt.Errorf("host validation failed: %w", err)
	}

	if err := v.pathValidator.Validate(parsedURL.EscapedPath()); err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	return nil
}
