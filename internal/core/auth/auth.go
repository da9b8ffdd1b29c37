// Package auth holds the credential schemes shared by the API server and
// its client. Providers attach credentials to outgoing requests with Apply
// and check incoming ones with Verify.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// AuthProvider applies and verifies one authentication scheme.
type AuthProvider interface {
	// Apply adds credentials to an outgoing request.
	Apply(req *http.Request) error

	// Verify reports whether an incoming request carries matching credentials.
	Verify(req *http.Request) bool

	// Type returns the scheme identifier used in config and flags.
	Type() string

	Validate() error

	// Redact returns a copy safe for logging.
	Redact() AuthProvider
}

// Credentials is the flat form of a provider as it appears in config files
// and command-line flags.
type Credentials struct {
	Type     string `yaml:"type"`
	Token    string `yaml:"token"`
	Key      string `yaml:"key"`
	Value    string `yaml:"value"`
	Location string `yaml:"location"`
	User     string `yaml:"user"`
	Pass     string `yaml:"pass"`
}

// New builds and validates the provider described by c. An empty type means
// no authentication.
func New(c Credentials) (AuthProvider, error) {
	authType := strings.ToLower(strings.TrimSpace(c.Type))
	if authType == "" {
		authType = "none"
	}
	if _, err := ParseAuthType(authType); err != nil {
		return nil, err
	}

	var provider AuthProvider
	switch authType {
	case "bearer":
		provider = NewBearerAuth(c.Token)
	case "apikey":
		provider = NewAPIKeyAuth(c.Key, c.Value, c.Location)
	case "basic":
		provider = NewBasicAuth(c.User, c.Pass)
	default:
		provider = &NoAuth{}
	}

	if err := provider.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s auth: %w", authType, err)
	}
	return provider, nil
}

// NoAuth represents no authentication
type NoAuth struct{}

func (n *NoAuth) Apply(req *http.Request) error {
	return nil
}

func (n *NoAuth) Verify(req *http.Request) bool {
	return true
}

func (n *NoAuth) Type() string {
	return "none"
}

func (n *NoAuth) Validate() error {
	return nil
}

func (n *NoAuth) Redact() AuthProvider {
	return n
}

// ParseAuthType converts a string to an auth type validator
func ParseAuthType(authType string) (string, error) {
	validTypes := map[string]bool{
		"none":   true,
		"bearer": true,
		"apikey": true,
		"basic":  true,
	}

	if !validTypes[authType] {
		return "", fmt.Errorf("invalid auth type: %s (valid: none, bearer, apikey, basic)", authType)
	}

	return authType, nil
}

// RedactString hides sensitive data for logging
func RedactString(s string) string {
	if len(s) == 0 {
		return "<empty>"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}

// secureEqual compares secrets in constant time.
func secureEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
