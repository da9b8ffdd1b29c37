package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// APIKeyAuth sends a static key either as a header or as a query parameter.
type APIKeyAuth struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Location string `json:"location"` // "header" or "query"
}

// NewAPIKeyAuth defaults the location to "header".
func NewAPIKeyAuth(key, value, location string) *APIKeyAuth {
	if location == "" {
		location = "header"
	}
	return &APIKeyAuth{
		Key:      key,
		Value:    value,
		Location: location,
	}
}

func (a *APIKeyAuth) Apply(req *http.Request) error {
	if err := a.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(a.Location) {
	case "header":
		req.Header.Set(a.Key, a.Value)
	case "query":
		q := req.URL.Query()
		q.Set(a.Key, a.Value)
		req.URL.RawQuery = q.Encode()
	default:
		return fmt.Errorf("invalid location: %s (must be 'header' or 'query')", a.Location)
	}

	return nil
}

func (a *APIKeyAuth) Verify(req *http.Request) bool {
	var got string
	switch strings.ToLower(a.Location) {
	case "header":
		got = req.Header.Get(a.Key)
	case "query":
		got = req.URL.Query().Get(a.Key)
	default:
		return false
	}
	return got != "" && secureEqual(got, a.Value)
}

func (a *APIKeyAuth) Type() string {
	return "apikey"
}

func (a *APIKeyAuth) Validate() error {
	if strings.TrimSpace(a.Key) == "" {
		return fmt.Errorf("API key name cannot be empty")
	}
	if strings.TrimSpace(a.Value) == "" {
		return fmt.Errorf("API key value cannot be empty")
	}
	location := strings.ToLower(a.Location)
	if location != "header" && location != "query" {
		return fmt.Errorf("location must be 'header' or 'query', got: %s", a.Location)
	}
	return nil
}

func (a *APIKeyAuth) Redact() AuthProvider {
	return &APIKeyAuth{
		Key:      a.Key,
		Value:    RedactString(a.Value),
		Location: a.Location,
	}
}

func (a *APIKeyAuth) String() string {
	return fmt.Sprintf("API Key %s in %s (%s)", a.Key, a.Location, RedactString(a.Value))
}
