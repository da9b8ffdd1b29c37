package model

import (
	"slices"
	"strings"
)

// BodyMode selects how a request body is encoded on the wire.
type BodyMode string

const (
	BodyModeJSON       BodyMode = "json"
	BodyModeURLEncoded BodyMode = "urlencoded"
)

const (
	DefaultModule         = "General"
	DefaultMethod         = "GET"
	DefaultName           = "Untitled"
	DefaultTokenVariable  = "token"
	DefaultExpectedStatus = 200

	// BaseURLKey is the environment entry populated from the first absolute URL.
	BaseURLKey = "base_url"

	// FallbackBaseURLVariable is used when no preferred base URL key exists.
	FallbackBaseURLVariable = "basic url"
)

// BaseURLCandidates is the lookup order for the base URL variable.
var BaseURLCandidates = []string{"base_url", "baseUrl", "host", FallbackBaseURLVariable}

// HTTPMethods lists the verbs an Endpoint may carry.
var HTTPMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// IsHTTPMethod reports whether s is one of HTTPMethods (exact, upper-case).
func IsHTTPMethod(s string) bool {
	return slices.Contains(HTTPMethods, s)
}

// APIDocument is the parsed spreadsheet: endpoints in row order plus the
// shared environment variables.
type APIDocument struct {
	Endpoints   []Endpoint `json:"endpoints"`
	Environment StringMap  `json:"environment"`
}

// Endpoint is one normalized HTTP call definition.
type Endpoint struct {
	RefID            string    `json:"ref_id,omitempty"`
	Name             string    `json:"name"`
	Module           string    `json:"module"`
	Method           string    `json:"method"`
	URL              string    `json:"url"`
	Headers          StringMap `json:"headers"`
	Params           StringMap `json:"params"`
	Body             Value     `json:"body"`
	BodyMode         BodyMode  `json:"body_mode"`
	ParamsInBody     bool      `json:"params_in_body,omitempty"`
	ExpectedResponse Value     `json:"expected_response"`
	ExpectedStatus   int       `json:"expected_status"`
	AuthScope        string    `json:"auth_scope,omitempty"`
	TokenVariable    string    `json:"token_variable"`
	IsTokenGenerator bool      `json:"is_token_generator"`
}

// BaseURL returns the environment variable used as request host, its value,
// and whether any preferred key was present.
func (d *APIDocument) BaseURL() (variable, value string, found bool) {
	for _, key := range BaseURLCandidates {
		if v, ok := d.Environment.Get(key); ok {
			return key, v, true
		}
	}
	return FallbackBaseURLVariable, "", false
}

// TokenGenerator returns the first endpoint flagged as token generator.
func (d *APIDocument) TokenGenerator() (*Endpoint, bool) {
	for i := range d.Endpoints {
		if d.Endpoints[i].IsTokenGenerator {
			return &d.Endpoints[i], true
		}
	}
	return nil, false
}

// RequiresCollectionAuth reports whether the endpoint should carry the
// collection bearer token.
func (e *Endpoint) RequiresCollectionAuth() bool {
	return strings.EqualFold(strings.TrimSpace(e.AuthScope), "collection")
}

// Path returns the request path: any residual scheme and host are dropped and
// a leading slash is guaranteed.
func (e *Endpoint) Path() string {
	return NormalizePath(e.URL)
}

// Status returns the declared success status.
func (e *Endpoint) Status() int {
	if e.ExpectedStatus <= 0 {
		return DefaultExpectedStatus
	}
	return e.ExpectedStatus
}

// NormalizePath strips "scheme://host" from raw and ensures a leading slash.
func NormalizePath(raw string) string {
	if idx := strings.Index(raw, "://"); idx != -1 {
		rest := raw[idx+3:]
		slash := strings.IndexByte(rest, '/')
		if slash == -1 {
			return "/"
		}
		return rest[slash:]
	}
	if !strings.HasPrefix(raw, "/") {
		return "/" + raw
	}
	return raw
}

// EffectiveBody returns the body a generator should send and whether the
// params were used for it. Params stand in for an empty urlencoded body.
func (e *Endpoint) EffectiveBody() (Value, bool) {
	if e.Body.IsEmpty() && e.BodyMode == BodyModeURLEncoded && e.Params.Len() > 0 {
		return ObjectFromStringMap(e.Params), true
	}
	return e.Body, false
}

// Payload splits the endpoint into the body to send and the query params.
// Params count as consumed only when a body is actually sent; with
// bodyAllowed false the body is null and every param stays in the query.
func (e *Endpoint) Payload(bodyAllowed bool) (body Value, query StringMap) {
	if !bodyAllowed {
		return Null(), e.Params.Clone()
	}
	body, fromParams := e.EffectiveBody()
	if fromParams || e.ParamsInBody {
		return body, StringMap{}
	}
	return body, e.Params.Clone()
}

// QueryParams returns the params that belong in the query string when the
// body is sent.
func (e *Endpoint) QueryParams() StringMap {
	_, query := e.Payload(true)
	return query
}
