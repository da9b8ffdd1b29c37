package postman

import (
	"strings"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/google/uuid"
)

const (
	DefaultName = "Generated Collection"

	headerTypeText = "text"
)

// Generate builds the collection for doc. It never fails and the output only
// depends on the document and the name.
func Generate(doc *model.APIDocument, name string) *Collection {
	if name == "" {
		name = DefaultName
	}

	c := &Collection{
		Info: Info{
			PostmanID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String(),
			Name:      name,
			Schema:    SchemaURL,
		},
		Item:     []Folder{},
		Variable: []Variable{},
	}

	doc.Environment.Each(func(k, v string) {
		c.Variable = append(c.Variable, Variable{Key: k, Value: v, Type: "string"})
	})

	baseVar, _, _ := doc.BaseURL()

	folders := make(map[string]int)
	for i := range doc.Endpoints {
		ep := &doc.Endpoints[i]
		idx, ok := folders[ep.Module]
		if !ok {
			idx = len(c.Item)
			folders[ep.Module] = idx
			c.Item = append(c.Item, Folder{Name: ep.Module, Item: []Item{}})
		}
		c.Item[idx].Item = append(c.Item[idx].Item, buildItem(ep, baseVar))
	}

	return c
}

func buildItem(ep *model.Endpoint, baseVar string) Item {
	return Item{
		Name:    ep.Name,
		Request: buildRequest(ep, baseVar),
		Event: []Event{{
			Listen: "test",
			Script: Script{Exec: testScript(ep), Type: "text/javascript"},
		}},
	}
}

func buildRequest(ep *model.Endpoint, baseVar string) Request {
	path := ep.Path()
	host := "{{" + baseVar + "}}"

	req := Request{
		Method: ep.Method,
		Header: []Header{},
		URL: URL{
			Raw:   host + path,
			Host:  []string{host},
			Path:  strings.Split(strings.Trim(path, "/"), "/"),
			Query: []QueryParam{},
		},
		Description: "Request for " + ep.Name,
	}

	if ep.RequiresCollectionAuth() && !ep.Headers.HasFold("Authorization") {
		req.Header = append(req.Header, Header{
			Key:   "Authorization",
			Value: "Bearer {{" + ep.TokenVariable + "}}",
			Type:  headerTypeText,
		})
	}
	ep.Headers.Each(func(k, v string) {
		req.Header = append(req.Header, Header{Key: k, Value: v, Type: headerTypeText})
	})

	body, query := ep.Payload(true)
	if !body.IsEmpty() {
		if !ep.Headers.HasFold("Content-Type") {
			req.Header = append(req.Header, Header{Key: "Content-Type", Value: "application/json", Type: headerTypeText})
		}
		req.Body = buildBody(body, ep.BodyMode)
	}

	query.Each(func(k, v string) {
		req.URL.Query = append(req.URL.Query, QueryParam{Key: k, Value: v})
	})

	return req
}

func buildBody(body model.Value, mode model.BodyMode) *Body {
	if mode == model.BodyModeURLEncoded && body.IsObject() {
		params := make([]FormParam, 0, len(body.Fields()))
		for _, f := range body.Fields() {
			params = append(params, FormParam{Key: f.Key, Value: f.Value.Text(), Type: headerTypeText})
		}
		return &Body{Mode: "urlencoded", URLEncoded: params}
	}

	return &Body{
		Mode:    "raw",
		Raw:     body.IndentJSON("    "),
		Options: &BodyOptions{Raw: RawOptions{Language: "json"}},
	}
}
