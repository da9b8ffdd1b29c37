package pytest

import (
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/Octrafic/api-factory/internal/core/normalize"
	"github.com/Octrafic/api-factory/internal/core/postman"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pyURLPattern     = regexp.MustCompile(`(?m)^    url = f"\{base_url\}(.*)"$`)
	pyMethodPattern  = regexp.MustCompile(`response = requests\.(\w+)\(`)
	pyHeaderPattern  = regexp.MustCompile(`(?m)^        "([^"]+)": `)
	pyBaseURLPattern = regexp.MustCompile(`os\.getenv\("API_BASE_URL", "([^"]*)"\)`)
)

type renderedRequest struct {
	Path    string
	Method  string
	Headers []string
}

// parsePyRequest pulls the request shape out of a generated test module.
func parsePyRequest(t *testing.T, content string) renderedRequest {
	t.Helper()
	url := pyURLPattern.FindStringSubmatch(content)
	require.NotNil(t, url, content)
	method := pyMethodPattern.FindStringSubmatch(content)
	require.NotNil(t, method, content)

	var headers []string
	if start := strings.Index(content, "    headers = {\n"); start >= 0 {
		block := content[start:]
		block = block[:strings.Index(block, "\n    }")]
		for _, m := range pyHeaderPattern.FindAllStringSubmatch(block, -1) {
			headers = append(headers, m[1])
		}
	}
	if strings.Contains(content, `headers["Authorization"] = f"Bearer {auth_token}"`) {
		headers = append(headers, "Authorization")
	}
	sort.Strings(headers)

	return renderedRequest{Path: url[1], Method: strings.ToUpper(method[1]), Headers: headers}
}

// collectionRequest reads the same shape from a collection request. The
// Content-Type the collection adds for bodies is left out: requests sets it
// itself for json= and data= payloads, so the test module never spells it.
func collectionRequest(ep *model.Endpoint, req postman.Request) renderedRequest {
	var headers []string
	for _, h := range req.Header {
		if strings.EqualFold(h.Key, "Content-Type") && !ep.Headers.HasFold("Content-Type") {
			continue
		}
		headers = append(headers, h.Key)
	}
	sort.Strings(headers)

	path := strings.TrimPrefix(req.URL.Raw, req.URL.Host[0])
	return renderedRequest{Path: path, Method: req.Method, Headers: headers}
}

func roundTripEndpoints(t *testing.T) []model.Endpoint {
	t.Helper()

	list := endpoint("List Users", "GET", "/users")
	list.Headers = model.NewStringMap("X-Trace", "1", "Accept", "application/json")

	create := endpoint("Create Order", "POST", "/orders")
	body, err := normalize.ParseJSON(`{"sku":"A-1","qty":2}`)
	require.NoError(t, err)
	create.Body = body

	profile := endpoint("Get Profile", "GET", "/profile/me")
	profile.AuthScope = "collection"

	search := endpoint("Search Catalog", "GET", "/catalog/search")
	search.Headers = model.NewStringMap("Content-Type", "application/x-www-form-urlencoded")
	search.BodyMode = model.BodyModeURLEncoded
	search.Params = model.NewStringMap("keyword", "shoes")

	login := endpoint("Login", "POST", "/auth/login")
	login.Headers = model.NewStringMap("Content-Type", "application/x-www-form-urlencoded")
	login.BodyMode = model.BodyModeURLEncoded
	login.Params = model.NewStringMap("username", "u")
	login.Body = model.ObjectFromStringMap(login.Params)
	login.ParamsInBody = true
	login.IsTokenGenerator = true

	return []model.Endpoint{list, create, profile, search, login}
}

func TestGeneratorsAgreeOnRequests(t *testing.T) {
	tests := []struct {
		name        string
		environment model.StringMap
		wantVar     string
		wantBase    string
	}{
		{"absolute url", model.NewStringMap("base_url", "https://api.example.com"), "base_url", "https://api.example.com"},
		{"host only", model.NewStringMap("host", "http://h:9000"), "host", "http://h:9000"},
		{"baseUrl only", model.NewStringMap("tenant", "acme", "baseUrl", "https://b.example.com"), "baseUrl", "https://b.example.com"},
		{"no base url", model.StringMap{}, "basic url", DefaultBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &model.APIDocument{Endpoints: roundTripEndpoints(t), Environment: tt.environment}

			collection := postman.Generate(doc, "Round Trip")
			files := renderFiles(t, doc)

			base := pyBaseURLPattern.FindStringSubmatch(files["conftest.py"])
			require.NotNil(t, base)
			assert.Equal(t, tt.wantBase, base[1])

			variables := make(map[string]string)
			for _, v := range collection.Variable {
				variables[v.Key] = v.Value
			}
			if tt.wantBase != DefaultBaseURL {
				assert.Equal(t, tt.wantBase, variables[tt.wantVar])
			}

			require.Len(t, collection.Item, 1)
			items := collection.Item[0].Item
			require.Len(t, items, len(doc.Endpoints))

			for i := range doc.Endpoints {
				ep := &doc.Endpoints[i]
				req := items[i].Request
				assert.Equal(t, []string{"{{" + tt.wantVar + "}}"}, req.URL.Host, ep.Name)

				group, name := Location(ep)
				content, ok := files["test_"+group+"/test_"+name+".py"]
				require.True(t, ok, ep.Name)

				assert.Equal(t, collectionRequest(ep, req), parsePyRequest(t, content), ep.Name)

				ep.Params.Each(func(key, _ string) {
					assert.Contains(t, content, `"`+key+`"`, "%s lost param %s", ep.Name, key)
				})
			}
		})
	}
}
