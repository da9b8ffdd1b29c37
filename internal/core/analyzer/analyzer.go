// Package analyzer summarizes a parsed APIDocument for previews and the
// inspect command.
package analyzer

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/Octrafic/api-factory/internal/core/pytest"
)

type Analysis struct {
	BaseURL         string            `json:"base_url"`
	BaseURLVariable string            `json:"base_url_variable"`
	Timestamp       time.Time         `json:"timestamp"`
	Modules         []string          `json:"modules"`
	Endpoints       []EndpointSummary `json:"endpoints"`
	Insights        []string          `json:"insights"`
}

// EndpointSummary is the preview row shown for each endpoint.
type EndpointSummary struct {
	Name             string `json:"name"`
	Module           string `json:"module"`
	Method           string `json:"method"`
	URL              string `json:"url"`
	BodyMode         string `json:"body_mode"`
	AuthScope        string `json:"auth_scope,omitempty"`
	TokenVariable    string `json:"token_variable"`
	IsTokenGenerator bool   `json:"is_token_generator"`
}

func Analyze(doc *model.APIDocument) *Analysis {
	analysis := &Analysis{
		Timestamp: time.Now(),
		Modules:   []string{},
		Endpoints: make([]EndpointSummary, 0, len(doc.Endpoints)),
		Insights:  []string{},
	}

	variable, value, found := doc.BaseURL()
	analysis.BaseURLVariable = variable
	analysis.BaseURL = value

	seenModules := make(map[string]bool)
	var generators []string
	needsAuth := 0
	for i := range doc.Endpoints {
		ep := &doc.Endpoints[i]

		analysis.Endpoints = append(analysis.Endpoints, EndpointSummary{
			Name:             ep.Name,
			Module:           ep.Module,
			Method:           ep.Method,
			URL:              ep.URL,
			BodyMode:         string(ep.BodyMode),
			AuthScope:        ep.AuthScope,
			TokenVariable:    ep.TokenVariable,
			IsTokenGenerator: ep.IsTokenGenerator,
		})

		if !seenModules[ep.Module] {
			seenModules[ep.Module] = true
			analysis.Modules = append(analysis.Modules, ep.Module)
		}
		if ep.IsTokenGenerator {
			generators = append(generators, ep.Name)
		}
		if ep.RequiresCollectionAuth() {
			needsAuth++
		}
	}

	if len(generators) == 0 && needsAuth > 0 {
		analysis.Insights = append(analysis.Insights, fmt.Sprintf(
			"%d endpoint(s) require collection auth but no token generator is defined; generated tests read AUTH_TOKEN instead.",
			needsAuth))
	}
	if len(generators) > 1 {
		analysis.Insights = append(analysis.Insights, fmt.Sprintf(
			"Multiple token generators found (%s); only '%s' is used.",
			strings.Join(generators, ", "), generators[0]))
	}
	if !found {
		analysis.Insights = append(analysis.Insights, fmt.Sprintf(
			"No base URL detected; requests use {{%s}} and tests default to %s.",
			variable, pytest.DefaultBaseURL))
	}
	analysis.Insights = append(analysis.Insights, sharedTestFiles(doc)...)

	return analysis
}

// sharedTestFiles reports endpoints whose generated test module names
// collide and therefore get a numeric suffix.
func sharedTestFiles(doc *model.APIDocument) []string {
	byFile := make(map[string][]string)
	var order []string
	for i := range doc.Endpoints {
		group, name := pytest.Location(&doc.Endpoints[i])
		file := path.Join("test_"+group, "test_"+name+".py")
		if _, ok := byFile[file]; !ok {
			order = append(order, file)
		}
		byFile[file] = append(byFile[file], doc.Endpoints[i].Name)
	}

	var insights []string
	for _, file := range order {
		if names := byFile[file]; len(names) > 1 {
			insights = append(insights, fmt.Sprintf(
				"Endpoints %s share test file %s; later ones get a numeric suffix.",
				quoteAll(names), file))
		}
	}
	return insights
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}
