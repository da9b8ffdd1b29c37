package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// BasicAuth represents HTTP Basic authentication
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func NewBasicAuth(username, password string) *BasicAuth {
	return &BasicAuth{
		Username: username,
		Password: password,
	}
}

func (b *BasicAuth) Apply(req *http.Request) error {
	if err := b.Validate(); err != nil {
		return err
	}
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

func (b *BasicAuth) Verify(req *http.Request) bool {
	user, pass, ok := req.BasicAuth()
	if !ok {
		return false
	}
	userOK := secureEqual(user, b.Username)
	passOK := secureEqual(pass, b.Password)
	return userOK && passOK
}

func (b *BasicAuth) Type() string {
	return "basic"
}

func (b *BasicAuth) Validate() error {
	if strings.TrimSpace(b.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if strings.TrimSpace(b.Password) == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}

// Redact keeps the username and hides the password.
func (b *BasicAuth) Redact() AuthProvider {
	return &BasicAuth{
		Username: b.Username,
		Password: "***",
	}
}

func (b *BasicAuth) String() string {
	return fmt.Sprintf("Basic Auth (%s)", b.Username)
}
