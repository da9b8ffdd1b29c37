// Package parser reads an API definition workbook into a model.APIDocument.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/Octrafic/api-factory/internal/core/normalize"
)

const urlencodedContentType = "x-www-form-urlencoded"

// Parse reads workbook bytes. Row-level problems are returned as warnings next
// to the document; only an unreadable workbook or a missing mandatory column
// yields a *ParseError.
func Parse(data []byte) (*model.APIDocument, []string, error) {
	wb, err := openWorkbook(data)
	if err != nil {
		return nil, nil, &ParseError{Message: fmt.Sprintf("Failed to read Excel file: %v", err)}
	}
	defer func() { _ = wb.Close() }()

	p := &docParser{
		doc: &model.APIDocument{Endpoints: []model.Endpoint{}},
	}

	if sheet, ok := wb.sheet(environmentsSheet); ok {
		if err := p.readEnvironment(wb, sheet); err != nil {
			return nil, nil, &ParseError{Message: fmt.Sprintf("Failed to read Excel file: %v", err)}
		}
	}

	sheet := wb.endpointSheet()
	header, rows, err := wb.rows(sheet)
	if err != nil {
		return nil, nil, &ParseError{Message: fmt.Sprintf("Failed to read Excel file: %v", err)}
	}

	cols, missing := resolveColumns(header)
	if len(missing) > 0 {
		return nil, nil, &ParseError{
			Message: fmt.Sprintf("Missing required columns in sheet '%s': %s", sheet, strings.Join(missing, ", ")),
			Hints:   columnHints(header, missing),
		}
	}

	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		// Header is sheet row 1, so data index 0 is row 2.
		p.parseRow(i+2, row, cols)
	}

	return p.doc, p.warnings, nil
}

type docParser struct {
	doc      *model.APIDocument
	warnings []string
}

func (p *docParser) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *docParser) readEnvironment(wb *workbook, sheet string) error {
	header, rows, err := wb.rows(sheet)
	if err != nil {
		return err
	}

	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	keyIdx, keyOK := matchAny(normalized, envKeyNames)
	valIdx, valOK := matchAny(normalized, envValueNames)
	if !keyOK || !valOK || keyIdx == valIdx {
		p.warn("Sheet '%s' found but could not identify Key/Value columns. Skipping.", sheet)
		return nil
	}

	for _, row := range rows {
		key := cell(row, keyIdx)
		if key == "" {
			continue
		}
		p.doc.Environment.Set(key, cell(row, valIdx))
	}
	return nil
}

func (p *docParser) parseRow(rowNum int, row []string, cols map[field]int) {
	get := func(f field) string {
		idx, ok := cols[f]
		if !ok {
			return ""
		}
		return cell(row, idx)
	}

	ep := model.Endpoint{
		RefID:     get(fieldRefID),
		Name:      valueOr(get(fieldName), model.DefaultName),
		Module:    valueOr(get(fieldModule), model.DefaultModule),
		Body:      model.Object(),
		BodyMode:  model.BodyModeJSON,
		AuthScope: get(fieldAuthScope),
	}

	ep.Method = strings.ToUpper(valueOr(get(fieldMethod), model.DefaultMethod))
	if !model.IsHTTPMethod(ep.Method) {
		p.warn("Row %d: Unknown HTTP method '%s', using GET.", rowNum, ep.Method)
		ep.Method = model.DefaultMethod
	}

	ep.URL = p.resolveURL(rowNum, valueOr(get(fieldURL), "/"))

	if raw := get(fieldBody); raw != "" {
		body, err := normalize.ParseJSON(raw)
		if err != nil {
			p.warn("Row %d: Invalid JSON in body.", rowNum)
		} else {
			ep.Body = body
		}
	}

	headers, invalidJSON := normalize.ParseHeaders(get(fieldHeaders))
	if invalidJSON {
		p.warn("Row %d: Invalid JSON in headers, read as 'Key: Value' lines.", rowNum)
	}
	ep.Headers = headers
	if ct, ok := headers.GetFold("Content-Type"); ok && strings.Contains(strings.ToLower(ct), urlencodedContentType) {
		ep.BodyMode = model.BodyModeURLEncoded
	}

	ep.ExpectedResponse = normalize.ParseJSONOrRaw(get(fieldExpectedResponse))
	ep.ExpectedStatus = p.parseStatus(rowNum, get(fieldExpectedStatus))
	ep.TokenVariable = normalize.SanitizeTokenVariable(get(fieldTokenVariable))
	ep.IsTokenGenerator = normalize.ParseBool(get(fieldIsTokenGenerator))

	if raw := get(fieldParams); raw != "" {
		params, err := normalize.ParseJSON(raw)
		if err != nil || !params.IsObject() {
			p.warn("Row %d: Invalid JSON in URL Params.", rowNum)
		} else {
			for _, f := range params.Fields() {
				ep.Params.Set(f.Key, f.Value.Text())
			}
		}
	}
	if ep.Body.IsEmpty() && ep.BodyMode == model.BodyModeURLEncoded && ep.Method != "GET" && ep.Params.Len() > 0 {
		ep.Body = model.ObjectFromStringMap(ep.Params)
		ep.ParamsInBody = true
	}

	p.doc.Endpoints = append(p.doc.Endpoints, ep)
}

// resolveURL returns the endpoint path and records the first absolute URL's
// origin as base_url.
func (p *docParser) resolveURL(rowNum int, raw string) string {
	base, path := splitURL(raw)
	if base == "" {
		return path
	}

	existing, ok := p.doc.Environment.Get(model.BaseURLKey)
	switch {
	case !ok:
		p.doc.Environment.Set(model.BaseURLKey, base)
	case existing != base:
		p.warn("Row %d: Base URL '%s' differs from '%s', keeping the first.", rowNum, base, existing)
	}
	return path
}

func (p *docParser) parseStatus(rowNum int, raw string) int {
	if raw == "" {
		return model.DefaultExpectedStatus
	}
	f, err := strconv.ParseFloat(raw, 64)
	status := int(f)
	if err != nil || float64(status) != f || status < 100 || status > 599 {
		p.warn("Row %d: Invalid expected status code '%s', using %d.", rowNum, raw, model.DefaultExpectedStatus)
		return model.DefaultExpectedStatus
	}
	return status
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
