// Package pytest renders an APIDocument as a runnable pytest project and
// packs it into a zip archive.
package pytest

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/Octrafic/api-factory/internal/core/normalize"
)

const (
	ProjectDir  = "pytest_tests"
	ArchiveName = "pytest_tests.zip"

	DefaultBaseURL = "http://localhost:8000"
	defaultGroup   = "general"
)

//go:embed templates
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// File is one generated file, addressed relative to the project directory.
type File struct {
	Path    string
	Content []byte
}

// Generate writes the project under <outputDir>/pytest_tests, replacing any
// previous run, and returns the path of <outputDir>/pytest_tests.zip.
func Generate(doc *model.APIDocument, outputDir string) (string, error) {
	files, err := Render(doc)
	if err != nil {
		return "", err
	}

	projectDir := filepath.Join(outputDir, ProjectDir)
	if err := os.RemoveAll(projectDir); err != nil {
		return "", fmt.Errorf("failed to clean project directory: %w", err)
	}
	for _, f := range files {
		target := filepath.Join(projectDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(target, f.Content, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}

	archivePath := filepath.Join(outputDir, ArchiveName)
	if err := writeArchive(projectDir, archivePath); err != nil {
		return "", err
	}
	return archivePath, nil
}

// Render produces the project files in memory: requirements, conftest, and one
// package per group holding one test module per endpoint.
func Render(doc *model.APIDocument) ([]File, error) {
	requirements, err := templateFS.ReadFile("templates/requirements.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements template: %w", err)
	}
	files := []File{{Path: "requirements.txt", Content: requirements}}

	conftest, err := execute("conftest.py.tmpl", buildConftest(doc))
	if err != nil {
		return nil, err
	}
	files = append(files, File{Path: "conftest.py", Content: conftest})

	seen := make(map[string]map[string]int)
	for i := range doc.Endpoints {
		ep := &doc.Endpoints[i]

		group, clean := Location(ep)
		names, ok := seen[group]
		if !ok {
			names = make(map[string]int)
			seen[group] = names
			files = append(files, File{Path: path.Join("test_"+group, "__init__.py"), Content: []byte{}})
		}

		names[clean]++
		if n := names[clean]; n > 1 {
			clean = clean + "_" + strconv.Itoa(n)
		}

		content, err := execute("test_endpoint.py.tmpl", buildTestFile(doc, ep, clean))
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: path.Join("test_"+group, "test_"+clean+".py"), Content: content})
	}

	return files, nil
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Location returns the test package and base test name of ep. Render adds a
// numeric suffix when several endpoints share a name inside one package.
func Location(ep *model.Endpoint) (group, name string) {
	return groupName(ep), identifier(ep.Name, "untitled")
}

// groupName is the first path segment of the endpoint, or "general".
func groupName(ep *model.Endpoint) string {
	p := ep.Path()
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	return identifier(first, defaultGroup)
}

type pair struct {
	Key   string
	Value string
}

type requestData struct {
	Method     string
	URL        string
	Headers    []pair
	InjectAuth bool
	Params     []pair
	PayloadVar string
	Payload    string
	Args       string
}

type tokenData struct {
	Name     string
	Variable string
	Request  requestData
}

type conftestData struct {
	DefaultBaseURL string
	Token          *tokenData
}

type testFileData struct {
	FuncName   string
	Fixtures   string
	Request    requestData
	Statuses   string
	Assertions []string
}

func buildConftest(doc *model.APIDocument) conftestData {
	data := conftestData{DefaultBaseURL: pyString(DefaultBaseURL)}
	if _, value, found := doc.BaseURL(); found && value != "" {
		data.DefaultBaseURL = pyString(value)
	}

	if gen, ok := doc.TokenGenerator(); ok {
		data.Token = &tokenData{
			Name:     commentText(gen.Name),
			Variable: pyString(gen.TokenVariable),
			Request:  buildRequest(gen, pyString),
		}
	}
	return data
}

func buildTestFile(doc *model.APIDocument, ep *model.Endpoint, clean string) testFileData {
	subst := newSubstituter(doc)
	req := buildRequest(ep, subst.Expr)

	fixtures := []string{"base_url"}
	if subst.used || ep.RequiresCollectionAuth() {
		fixtures = append(fixtures, authFixture)
	}
	if ep.RequiresCollectionAuth() && !ep.Headers.HasFold("Authorization") {
		req.InjectAuth = true
	}

	return testFileData{
		FuncName:   "test_" + clean,
		Fixtures:   strings.Join(fixtures, ", "),
		Request:    req,
		Statuses:   statusList(ep.Status()),
		Assertions: assertions(ep.ExpectedResponse),
	}
}

// buildRequest lays out the request call. The body is only sent for
// POST, PUT and PATCH; urlencoded object bodies go out as form data.
func buildRequest(ep *model.Endpoint, str func(string) string) requestData {
	req := requestData{
		Method: strings.ToLower(ep.Method),
		URL:    `f"{base_url}` + fstringText(ep.Path()) + `"`,
	}

	ep.Headers.Each(func(k, v string) {
		req.Headers = append(req.Headers, pair{Key: pyString(k), Value: str(v)})
	})
	body, query := ep.Payload(sendsBody(ep.Method))
	query.Each(func(k, v string) {
		req.Params = append(req.Params, pair{Key: pyString(k), Value: str(v)})
	})

	args := "url, headers=headers, params=params"
	if !body.IsEmpty() {
		req.Payload = pyLiteral(body, str)
		if ep.BodyMode == model.BodyModeURLEncoded && body.IsObject() {
			req.PayloadVar = "payload"
			args += ", data=payload"
		} else {
			req.PayloadVar = "json_body"
			args += ", json=json_body"
		}
	}
	req.Args = args
	return req
}

func sendsBody(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

func statusList(declared int) string {
	codes := []string{strconv.Itoa(declared)}
	for _, c := range []int{200, 201} {
		if c != declared {
			codes = append(codes, strconv.Itoa(c))
		}
	}
	return strings.Join(codes, ", ")
}

// assertions mirrors the collection checks: field equality for objects,
// whole-body equality for arrays, substring containment for text.
func assertions(expected model.Value) []string {
	if normalize.IsEmptyExpectation(expected) {
		return []string{"# Skipped assertion for empty/None response"}
	}
	if expected.IsEmpty() {
		return nil
	}

	switch expected.Kind() {
	case model.KindObject:
		lines := []string{"response_json = response.json()"}
		for _, f := range expected.Fields() {
			if f.Value.HasPlaceholder() {
				lines = append(lines, fmt.Sprintf("# Skipped assertion for %s due to placeholder %s",
					commentText(f.Key), commentText(f.Value.Text())))
				continue
			}
			lines = append(lines, fmt.Sprintf("assert response_json.get(%s) == %s",
				pyString(f.Key), pyLiteral(f.Value, pyString)))
		}
		return lines
	case model.KindArray:
		if expected.HasPlaceholder() {
			return []string{"# Skipped body assertion due to placeholder " + commentText(expected.CompactJSON())}
		}
		return []string{"assert response.json() == " + pyLiteral(expected, pyString)}
	}

	text := expected.Text()
	if normalize.HasPlaceholder(text) {
		return []string{"# Skipped body text assertion due to placeholder " + commentText(text)}
	}
	return []string{fmt.Sprintf("assert %s in response.text", pyString(text))}
}
