package postman

import (
	"testing"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/Octrafic/api-factory/internal/core/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func object(t *testing.T, raw string) model.Value {
	t.Helper()
	v, err := normalize.ParseJSON(raw)
	require.NoError(t, err)
	return v
}

func endpoint(name, module, method, url string) model.Endpoint {
	return model.Endpoint{
		Name:             name,
		Module:           module,
		Method:           method,
		URL:              url,
		Body:             model.Object(),
		BodyMode:         model.BodyModeJSON,
		ExpectedResponse: model.Null(),
		ExpectedStatus:   200,
		TokenVariable:    "token",
	}
}

func generateJSON(t *testing.T, doc *model.APIDocument) gjson.Result {
	t.Helper()
	data, err := Marshal(Generate(doc, "Demo"))
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(data))
	return gjson.ParseBytes(data)
}

func stringArray(r gjson.Result) []string {
	out := []string{}
	for _, item := range r.Array() {
		out = append(out, item.String())
	}
	return out
}

func TestGenerateInfoAndVariables(t *testing.T) {
	doc := &model.APIDocument{
		Environment: model.NewStringMap("tenant", "acme", "base_url", "https://api.example.com"),
	}

	c := Generate(doc, "Demo")
	assert.Equal(t, SchemaURL, c.Info.Schema)
	assert.Equal(t, "Demo", c.Info.Name)
	assert.Equal(t, Generate(doc, "Demo").Info.PostmanID, c.Info.PostmanID)
	assert.NotEqual(t, Generate(doc, "Other").Info.PostmanID, c.Info.PostmanID)
	assert.Equal(t, []Variable{
		{Key: "tenant", Value: "acme", Type: "string"},
		{Key: "base_url", Value: "https://api.example.com", Type: "string"},
	}, c.Variable)
	assert.Empty(t, c.Item)

	assert.Equal(t, DefaultName, Generate(doc, "").Info.Name)
}

func TestGenerateFoldersKeepFirstSeenOrder(t *testing.T) {
	doc := &model.APIDocument{Endpoints: []model.Endpoint{
		endpoint("a", "Users", "GET", "/users"),
		endpoint("b", "Orders", "GET", "/orders"),
		endpoint("c", "Users", "DELETE", "/users/1"),
	}}

	c := Generate(doc, "Demo")
	require.Len(t, c.Item, 2)
	assert.Equal(t, "Users", c.Item[0].Name)
	assert.Equal(t, "Orders", c.Item[1].Name)
	require.Len(t, c.Item[0].Item, 2)
	assert.Equal(t, "c", c.Item[0].Item[1].Name)
}

func TestGenerateRequestURL(t *testing.T) {
	doc := &model.APIDocument{
		Environment: model.NewStringMap("host", "http://h"),
		Endpoints: []model.Endpoint{
			endpoint("List", "M", "GET", "/v1/items"),
			endpoint("Root", "M", "GET", "/"),
			endpoint("Residual", "M", "GET", "https://x.example.com/a/b"),
		},
	}

	out := generateJSON(t, doc)
	first := out.Get("item.0.item.0.request")
	assert.Equal(t, "{{host}}/v1/items", first.Get("url.raw").String())
	assert.Equal(t, []string{"{{host}}"}, stringArray(first.Get("url.host")))
	assert.Equal(t, []string{"v1", "items"}, stringArray(first.Get("url.path")))
	assert.Equal(t, "Request for List", first.Get("description").String())
	assert.True(t, first.Get("url.query").IsArray())
	assert.False(t, first.Get("body").Exists())

	assert.Equal(t, "{{host}}/", out.Get("item.0.item.1.request.url.raw").String())
	assert.Equal(t, "{{host}}/a/b", out.Get("item.0.item.2.request.url.raw").String())
}

func TestGenerateFallbackBaseVariable(t *testing.T) {
	doc := &model.APIDocument{Endpoints: []model.Endpoint{endpoint("List", "M", "GET", "/items")}}

	c := Generate(doc, "Demo")
	assert.Equal(t, "{{basic url}}/items", c.Item[0].Item[0].Request.URL.Raw)
}

func TestGenerateHeadersAndJSONBody(t *testing.T) {
	ep := endpoint("Create", "M", "POST", "/items")
	ep.AuthScope = "Collection"
	ep.TokenVariable = "authToken"
	ep.Headers = model.NewStringMap("X-Trace", "1")
	ep.Body = object(t, `{"name": "<b>&", "tags": ["a"]}`)
	ep.Params = model.NewStringMap("dry_run", "true")

	c := Generate(&model.APIDocument{Endpoints: []model.Endpoint{ep}}, "Demo")
	req := c.Item[0].Item[0].Request

	assert.Equal(t, []Header{
		{Key: "Authorization", Value: "Bearer {{authToken}}", Type: "text"},
		{Key: "X-Trace", Value: "1", Type: "text"},
		{Key: "Content-Type", Value: "application/json", Type: "text"},
	}, req.Header)

	require.NotNil(t, req.Body)
	assert.Equal(t, "raw", req.Body.Mode)
	assert.Equal(t, "{\n    \"name\": \"<b>&\",\n    \"tags\": [\n        \"a\"\n    ]\n}", req.Body.Raw)
	assert.Equal(t, "json", req.Body.Options.Raw.Language)
	assert.Equal(t, []QueryParam{{Key: "dry_run", Value: "true"}}, req.URL.Query)

	data, err := Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Bearer {{authToken}}"`)
	assert.Contains(t, string(data), `\"<b>&\"`)
	assert.Contains(t, string(data), "\n    \"info\": {")
}

func TestGenerateKeepsExistingAuthorization(t *testing.T) {
	ep := endpoint("Me", "M", "GET", "/me")
	ep.AuthScope = "collection"
	ep.Headers = model.NewStringMap("authorization", "Basic abc")

	req := Generate(&model.APIDocument{Endpoints: []model.Endpoint{ep}}, "Demo").Item[0].Item[0].Request
	assert.Equal(t, []Header{{Key: "authorization", Value: "Basic abc", Type: "text"}}, req.Header)
}

func TestGenerateURLEncodedBodies(t *testing.T) {
	form := model.NewStringMap("Content-Type", "application/x-www-form-urlencoded")

	token := endpoint("Get Auth Token", "Auth", "POST", "/getAuthToken")
	token.Headers = form
	token.BodyMode = model.BodyModeURLEncoded
	token.Body = object(t, `{"login.username":"u","login.password":"p","tenantId":"t"}`)

	fallback := endpoint("Search", "Auth", "GET", "/search")
	fallback.Headers = form
	fallback.BodyMode = model.BodyModeURLEncoded
	fallback.Params = model.NewStringMap("q", "x")

	promoted := endpoint("Login", "Auth", "POST", "/login")
	promoted.Headers = form
	promoted.BodyMode = model.BodyModeURLEncoded
	promoted.Params = model.NewStringMap("user", "u")
	promoted.Body = model.ObjectFromStringMap(promoted.Params)
	promoted.ParamsInBody = true

	c := Generate(&model.APIDocument{Endpoints: []model.Endpoint{token, fallback, promoted}}, "Demo")
	items := c.Item[0].Item

	req := items[0].Request
	require.NotNil(t, req.Body)
	assert.Equal(t, "urlencoded", req.Body.Mode)
	assert.Equal(t, []FormParam{
		{Key: "login.username", Value: "u", Type: "text"},
		{Key: "login.password", Value: "p", Type: "text"},
		{Key: "tenantId", Value: "t", Type: "text"},
	}, req.Body.URLEncoded)
	assert.Len(t, req.Header, 1)

	req = items[1].Request
	require.NotNil(t, req.Body)
	assert.Equal(t, []FormParam{{Key: "q", Value: "x", Type: "text"}}, req.Body.URLEncoded)
	assert.Empty(t, req.URL.Query)

	req = items[2].Request
	assert.Equal(t, []FormParam{{Key: "user", Value: "u", Type: "text"}}, req.Body.URLEncoded)
	assert.Empty(t, req.URL.Query)
}

func TestScriptTokenGenerator(t *testing.T) {
	ep := endpoint("Get Auth Token", "Auth", "POST", "/getAuthToken")
	ep.TokenVariable = "authToken"
	ep.IsTokenGenerator = true
	ep.ExpectedResponse = object(t, `{"token": "<authToken>"}`)

	assert.Equal(t, []string{
		`pm.test("Successful request", function () {`,
		`    pm.expect(pm.response.code).to.be.oneOf([200, 201]);`,
		`});`,
		`// Token Generator for variable: authToken`,
		`var jsonData = pm.response.json();`,
		`if (jsonData["authToken"]) { pm.globals.set("authToken", jsonData["authToken"]); }`,
		`else if (jsonData.token) { pm.globals.set("authToken", jsonData.token); }`,
		`else if (jsonData.access_token) { pm.globals.set("authToken", jsonData.access_token); }`,
		`pm.globals.set("token", jsonData["token"]);`,
	}, testScript(&ep))
}

func TestScriptAuthHeuristic(t *testing.T) {
	ep := endpoint("User Login", "Auth", "POST", "/login")
	ep.ExpectedStatus = 202

	lines := testScript(&ep)
	assert.Equal(t, `    pm.expect(pm.response.code).to.be.oneOf([202, 200, 201]);`, lines[1])
	assert.Contains(t, lines, "// Auto-detected Authentication API")
	assert.Contains(t, lines, `if (jsonData.access_token) { pm.globals.set("token", jsonData.access_token); }`)
	assert.Equal(t, "// No expected response defined, body assertions skipped.", lines[len(lines)-1])
}

func TestScriptStructuredExpectation(t *testing.T) {
	ep := endpoint("Create Item", "Items", "POST", "/items")
	ep.ExpectedResponse = object(t, `{"id": 101, "status": "created", "meta": {"v": "it's"}}`)

	lines := testScript(&ep)
	assert.Equal(t, []string{
		`var jsonData = pm.response.json();`,
		`pm.test("Check id", function () { pm.expect(jsonData["id"]).to.eql(101); });`,
		`pm.test("Check status", function () { pm.expect(jsonData["status"]).to.eql("created"); });`,
		`pm.test("Check meta", function () { pm.expect(jsonData["meta"]).to.eql({"v":"it's"}); });`,
	}, lines[3:])

	for _, line := range lines {
		assert.NotContains(t, line, "to.include")
	}
}

func TestScriptTextAndArrayExpectations(t *testing.T) {
	tests := []struct {
		name     string
		expected model.Value
		want     []string
	}{
		{
			name:     "plain text",
			expected: model.String(`Saved "ok"`),
			want: []string{
				`pm.test("Body contains expected text", function () {`,
				`    pm.expect(pm.response.text()).to.include("Saved \"ok\"");`,
				`});`,
			},
		},
		{
			name:     "text with placeholder",
			expected: model.String("Hello <name>\nbye"),
			want:     []string{`// Skipped strict body match because expected response contains placeholders: Hello <name> bye`},
		},
		{
			name:     "none",
			expected: model.String("None"),
			want:     []string{`// No expected response defined, body assertions skipped.`},
		},
		{
			name:     "empty",
			expected: model.String(""),
			want:     []string{`// No expected response defined, body assertions skipped.`},
		},
		{
			name:     "array",
			expected: model.Array(model.Number("1"), model.String("a")),
			want:     []string{`pm.test("Body matches expected response", function () { pm.expect(pm.response.json()).to.eql([1,"a"]); });`},
		},
		{
			name:     "array with placeholder",
			expected: model.Array(model.String("<id>")),
			want:     []string{`// Skipped strict body match because expected response contains placeholders: ["<id>"]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := endpoint("List Items", "Items", "GET", "/items")
			ep.ExpectedResponse = tt.expected
			assert.Equal(t, tt.want, testScript(&ep)[3:])
		})
	}
}

func TestGenerateEventShape(t *testing.T) {
	doc := &model.APIDocument{Endpoints: []model.Endpoint{endpoint("List", "M", "GET", "/items")}}

	out := generateJSON(t, doc)
	event := out.Get("item.0.item.0.event.0")
	assert.Equal(t, "test", event.Get("listen").String())
	assert.Equal(t, "text/javascript", event.Get("script.type").String())
	assert.True(t, event.Get("script.exec").IsArray())
}
