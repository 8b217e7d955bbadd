package security

import (
	"fmt"
	"strings"
)

// PathValidator rejects endpoint paths that try to escape the origin's root
type PathValidator struct {
	blockedPatterns []string
	encodedPatterns []string
}

// NewPathValidator creates a new path validator
func NewPathValidator() *PathValidator {
	return &PathValidator{
		blockedPatterns: []string{
			"../",
			"..\\",
		},
		encodedPatterns: []string{
			"%2e%2e/",
			"%2e%2e%2f",
			"..%2f",
			"%2e%2e\\",
			"%2e%2e%5c",
			"..%5c",
		},
	}
}

// Validate checks if the URL path contains dangerous patterns
func (v *PathValidator) Validate(urlPath string) error {
	if urlPath == "" {
		return nil
	}

	normalizedPath := strings.ToLower(urlPath)

	for _, pattern := range v.blockedPatterns {
		if strings.Contains(normalizedPath, pattern) || strings.HasSuffix(normalizedPath, "/..") {
			return fmt.Errorf("path contains blocked pattern '%s' (path traversal)", pattern)
		}
	}

	for _, pattern := range v.encodedPatterns {
		if strings.Contains(normalizedPath, pattern) {
			return fmt.Errorf("path contains encoded traversal pattern")
		}
	}

	return nil
}
