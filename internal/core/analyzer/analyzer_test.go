package analyzer

import (
	"testing"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endpoint(name, method, url string) model.Endpoint {
	return model.Endpoint{
		Name:          name,
		Module:        model.DefaultModule,
		Method:        method,
		URL:           url,
		Body:          model.Object(),
		BodyMode:      model.BodyModeJSON,
		TokenVariable: model.DefaultTokenVariable,
	}
}

func TestAnalyzeSummaries(t *testing.T) {
	login := endpoint("Login", "POST", "/auth/login")
	login.Module = "Auth"
	login.IsTokenGenerator = true
	login.TokenVariable = "jwt"

	list := endpoint("List Users", "GET", "/users")
	list.Module = "Users"
	list.AuthScope = "Collection"

	doc := &model.APIDocument{
		Endpoints:   []model.Endpoint{login, list},
		Environment: model.NewStringMap("baseUrl", "https://api.example.com"),
	}

	a := Analyze(doc)
	assert.Equal(t, "baseUrl", a.BaseURLVariable)
	assert.Equal(t, "https://api.example.com", a.BaseURL)
	assert.Equal(t, []string{"Auth", "Users"}, a.Modules)
	assert.Empty(t, a.Insights)
	assert.False(t, a.Timestamp.IsZero())

	require.Len(t, a.Endpoints, 2)
	assert.Equal(t, EndpointSummary{
		Name:             "Login",
		Module:           "Auth",
		Method:           "POST",
		URL:              "/auth/login",
		BodyMode:         "json",
		TokenVariable:    "jwt",
		IsTokenGenerator: true,
	}, a.Endpoints[0])
	assert.Equal(t, "Collection", a.Endpoints[1].AuthScope)
}

func TestAnalyzeInsights(t *testing.T) {
	tests := []struct {
		name      string
		endpoints []model.Endpoint
		want      []string
	}{
		{
			name: "auth without generator",
			endpoints: func() []model.Endpoint {
				ep := endpoint("Orders", "GET", "/orders")
				ep.AuthScope = "collection"
				return []model.Endpoint{ep}
			}(),
			want: []string{
				"1 endpoint(s) require collection auth but no token generator is defined; generated tests read AUTH_TOKEN instead.",
			},
		},
		{
			name: "multiple generators",
			endpoints: func() []model.Endpoint {
				a := endpoint("Login", "POST", "/login")
				a.IsTokenGenerator = true
				b := endpoint("Refresh", "POST", "/refresh")
				b.IsTokenGenerator = true
				return []model.Endpoint{a, b}
			}(),
			want: []string{"Multiple token generators found (Login, Refresh); only 'Login' is used."},
		},
		{
			name: "shared test file",
			endpoints: []model.Endpoint{
				endpoint("Get User", "GET", "/users/1"),
				endpoint("get-user", "GET", "/users/2"),
				endpoint("Get User", "GET", "/accounts/1"),
			},
			want: []string{"Endpoints 'Get User', 'get-user' share test file test_users/test_get_user.py; later ones get a numeric suffix."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &model.APIDocument{
				Endpoints:   tt.endpoints,
				Environment: model.NewStringMap("base_url", "http://localhost"),
			}
			assert.Equal(t, tt.want, Analyze(doc).Insights)
		})
	}
}

func TestAnalyzeWithoutBaseURL(t *testing.T) {
	a := Analyze(&model.APIDocument{Endpoints: []model.Endpoint{endpoint("Ping", "GET", "/ping")}})

	assert.Equal(t, model.FallbackBaseURLVariable, a.BaseURLVariable)
	assert.Empty(t, a.BaseURL)
	assert.Equal(t, []string{"No base URL detected; requests use {{basic url}} and tests default to http://localhost:8000."}, a.Insights)
}
