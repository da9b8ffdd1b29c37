package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Octrafic/api-factory/internal/cli"
	"github.com/Octrafic/api-factory/internal/core/analyzer"
	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/Octrafic/api-factory/internal/core/parser"
	"github.com/Octrafic/api-factory/internal/core/postman"
	"github.com/Octrafic/api-factory/internal/core/pytest"
	"github.com/Octrafic/api-factory/internal/infra/storage"
	"github.com/fatih/color"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

var (
	outputDir      string
	collectionName string
	inspectJSON    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <file.xlsx>",
	Short: "Generate a Postman collection and a pytest project from a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseWorkbook(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Found %s API definitions.\n", accent(len(doc.Endpoints)))

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		name := collectionName
		if name == "" {
			name = "Generated from " + filepath.Base(args[0])
		}
		fmt.Println(muted("Generating Postman Collection..."))
		data, err := postman.Marshal(postman.Generate(doc, name))
		if err != nil {
			return err
		}
		collectionPath := filepath.Join(outputDir, storage.CollectionFileName)
		if err := os.WriteFile(collectionPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write collection: %w", err)
		}

		fmt.Println(muted("Generating Pytest structure..."))
		archivePath, err := pytest.Generate(doc, outputDir)
		if err != nil {
			return err
		}

		fmt.Println(success("✓ Done"))
		fmt.Printf("  Postman: %s\n", collectionPath)
		fmt.Printf("  Pytest:  %s\n", filepath.Join(outputDir, pytest.ProjectDir))
		fmt.Printf("  Archive: %s\n", archivePath)
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.xlsx>",
	Short: "Show what a workbook defines without generating anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseWorkbook(args[0])
		if err != nil {
			return err
		}

		if inspectJSON {
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode document: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		printAnalysis(analyzer.Analyze(doc))
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the parsed document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := jsonschema.Reflector{ExpandedStruct: true}
		schema := r.Reflect(&model.APIDocument{})
		schema.Title = "APIDocument"

		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory for generated artifacts")
	generateCmd.Flags().StringVarP(&collectionName, "name", "n", "", "Collection name (default \"Generated from <file>\")")

	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the parsed document as JSON")
}

// parseWorkbook reads and parses path, printing row warnings to stderr. An
// empty workbook is an error.
func parseWorkbook(path string) (*model.APIDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fmt.Fprintln(os.Stderr, muted("Parsing XLSX file..."))
	doc, warnings, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, warning("WARNING: "+w))
	}
	if len(doc.Endpoints) == 0 {
		return nil, fmt.Errorf("no valid API definitions found in %s", path)
	}
	return doc, nil
}

func printAnalysis(a *analyzer.Analysis) {
	baseURL := a.BaseURL
	if baseURL == "" {
		baseURL = muted("(not set)")
	}
	fmt.Printf("%s %s = %s\n", accent("Base URL:"), a.BaseURLVariable, baseURL)
	fmt.Printf("%s %d in %d module(s)\n\n", accent("Endpoints:"), len(a.Endpoints), len(a.Modules))

	for _, module := range a.Modules {
		fmt.Println(accent(module))
		for _, ep := range a.Endpoints {
			if ep.Module != module {
				continue
			}
			line := fmt.Sprintf("  %s %s %s", methodColor(ep.Method).Sprintf("%-7s", ep.Method), ep.URL, muted(ep.Name))
			if ep.IsTokenGenerator {
				line += warning(" [token: " + ep.TokenVariable + "]")
			}
			if ep.AuthScope != "" {
				line += muted(" auth=" + ep.AuthScope)
			}
			fmt.Println(line)
		}
	}

	if len(a.Insights) > 0 {
		fmt.Println()
		for _, insight := range a.Insights {
			fmt.Println(warning("! " + insight))
		}
	}
}

func methodColor(method string) *color.Color {
	r, g, b := cli.MethodRGB(method)
	return color.RGB(r, g, b).Add(color.Bold)
}
