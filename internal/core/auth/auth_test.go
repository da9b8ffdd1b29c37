package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest("GET", "http://example.com/api/status/1", nil)
	require.NoError(t, err)
	return req
}

func TestBearerAuth(t *testing.T) {
	auth := NewBearerAuth("test-token-123")
	require.NoError(t, auth.Validate())

	req := newRequest(t)
	require.NoError(t, auth.Apply(req))
	assert.Equal(t, "Bearer test-token-123", req.Header.Get("Authorization"))
	assert.Equal(t, "bearer", auth.Type())
	assert.True(t, auth.Verify(req))

	lower := newRequest(t)
	lower.Header.Set("Authorization", "bearer test-token-123")
	assert.True(t, auth.Verify(lower))

	wrong := newRequest(t)
	wrong.Header.Set("Authorization", "Bearer other")
	assert.False(t, auth.Verify(wrong))
	assert.False(t, auth.Verify(newRequest(t)))

	redacted, ok := auth.Redact().(*BearerAuth)
	require.True(t, ok)
	assert.Equal(t, "test***-123", redacted.Token)
}

func TestAPIKeyAuth(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", "my-secret-key", "header")
	require.NoError(t, auth.Validate())

	req := newRequest(t)
	require.NoError(t, auth.Apply(req))
	assert.Equal(t, "my-secret-key", req.Header.Get("X-API-Key"))
	assert.True(t, auth.Verify(req))
	assert.False(t, auth.Verify(newRequest(t)))

	query := NewAPIKeyAuth("api_key", "my-secret-key", "query")
	req2 := newRequest(t)
	require.NoError(t, query.Apply(req2))
	assert.Equal(t, "my-secret-key", req2.URL.Query().Get("api_key"))
	assert.True(t, query.Verify(req2))
	assert.False(t, query.Verify(req), "header credentials do not satisfy a query key")

	assert.Equal(t, "header", NewAPIKeyAuth("k", "v", "").Location)
}

func TestBasicAuth(t *testing.T) {
	auth := NewBasicAuth("user123", "pass456")
	require.NoError(t, auth.Validate())

	req := newRequest(t)
	require.NoError(t, auth.Apply(req))
	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user123", user)
	assert.Equal(t, "pass456", pass)
	assert.True(t, auth.Verify(req))

	wrong := newRequest(t)
	wrong.SetBasicAuth("user123", "nope")
	assert.False(t, auth.Verify(wrong))

	redacted, ok := auth.Redact().(*BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "***", redacted.Password)
	assert.Equal(t, "user123", redacted.Username)
}

func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}

	req := httptest.NewRequest("GET", "/", nil)
	assert.NoError(t, auth.Apply(req))
	assert.True(t, auth.Verify(req))
	assert.Equal(t, "none", auth.Type())
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name     string
		provider AuthProvider
	}{
		{"empty bearer token", NewBearerAuth("")},
		{"empty API key name", NewAPIKeyAuth("", "value", "header")},
		{"invalid location", NewAPIKeyAuth("key", "value", "invalid")},
		{"empty username", NewBasicAuth("", "pass")},
		{"empty password", NewBasicAuth("user", " ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.provider.Validate())
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		wantType string
		wantErr  bool
	}{
		{"empty type", Credentials{}, "none", false},
		{"bearer", Credentials{Type: "Bearer", Token: "abc"}, "bearer", false},
		{"apikey", Credentials{Type: "apikey", Key: "X-Key", Value: "v"}, "apikey", false},
		{"basic", Credentials{Type: "basic", User: "u", Pass: "p"}, "basic", false},
		{"unknown", Credentials{Type: "oauth"}, "", true},
		{"missing token", Credentials{Type: "bearer"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := New(tt.creds)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, provider.Type())
		})
	}
}

func TestRedactString(t *testing.T) {
	assert.Equal(t, "<empty>", RedactString(""))
	assert.Equal(t, "***", RedactString("short"))
	assert.Equal(t, "abcd***mnop", RedactString("abcdefghijklmnop"))
}
