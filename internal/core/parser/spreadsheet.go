package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	apisSheet         = "apis"
	environmentsSheet = "environments"
)

type workbook struct {
	file *excelize.File
}

func openWorkbook(data []byte) (*workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(f.GetSheetList()) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return &workbook{file: f}, nil
}

func (w *workbook) Close() error {
	return w.file.Close()
}

// sheet finds a sheet by name, ignoring case.
func (w *workbook) sheet(name string) (string, bool) {
	for _, s := range w.file.GetSheetList() {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

// endpointSheet prefers "apis" and falls back to the first sheet.
func (w *workbook) endpointSheet() string {
	if s, ok := w.sheet(apisSheet); ok {
		return s
	}
	return w.file.GetSheetList()[0]
}

// rows returns the header row and the data rows of a sheet.
func (w *workbook) rows(sheet string) ([]string, [][]string, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
