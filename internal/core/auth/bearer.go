package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// BearerAuth sends and expects "Authorization: Bearer <token>".
type BearerAuth struct {
	Token string `json:"token"`
}

func NewBearerAuth(token string) *BearerAuth {
	return &BearerAuth{Token: token}
}

func (b *BearerAuth) Apply(req *http.Request) error {
	if err := b.Validate(); err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Verify accepts the scheme name in any case.
func (b *BearerAuth) Verify(req *http.Request) bool {
	scheme, token, ok := strings.Cut(req.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	return secureEqual(strings.TrimSpace(token), b.Token)
}

func (b *BearerAuth) Type() string {
	return "bearer"
}

func (b *BearerAuth) Validate() error {
	if strings.TrimSpace(b.Token) == "" {
		return fmt.Errorf("bearer token cannot be empty")
	}
	return nil
}

func (b *BearerAuth) Redact() AuthProvider {
	return &BearerAuth{
		Token: RedactString(b.Token),
	}
}

func (b *BearerAuth) String() string {
	return fmt.Sprintf("Bearer Token (%s)", RedactString(b.Token))
}
