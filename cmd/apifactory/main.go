package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Octrafic/api-factory/internal/config"
	"github.com/Octrafic/api-factory/internal/core/parser"
	"github.com/Octrafic/api-factory/internal/infra/logger"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
)

var (
	configPath    string
	debugFilePath string
	debug         bool

	cfg *config.Config
)

var (
	success = color.New(color.FgGreen, color.Bold).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed, color.Bold).SprintFunc()
	muted   = color.New(color.FgHiBlack).SprintFunc()
	accent  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "apifactory",
	Short: "API Factory - turn API spreadsheets into Postman collections and pytest suites",
	Long: `API Factory reads an Excel workbook describing HTTP endpoints and generates
a Postman v2.1 collection plus a runnable pytest project. It works locally or
as an HTTP service that processes uploads in the background.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return initLogger(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&debugFilePath, "debug-file", "", "Path to debug log file (enables file logging)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(generateCmd, inspectCmd, schemaCmd, serveCmd,
		uploadCmd, statusCmd, downloadCmd, versionCmd, configCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		logger.Close()
		printError(err)
		os.Exit(1)
	}
	logger.Close()
}

func printError(err error) {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		_, _ = fmt.Fprintln(os.Stderr, failure("✗ "+parseErr.Detail()))
		return
	}
	_, _ = fmt.Fprintln(os.Stderr, failure("✗ Error:"), err)
}

// initLogger enables zap output for the server, or when a log file or debug
// mode was requested. Other commands stay quiet.
func initLogger(cmd *cobra.Command) error {
	file := cfg.Log.File
	if debugFilePath != "" {
		file = debugFilePath
	}
	enabled := debug || cfg.Log.Debug
	if file == "" && !enabled && cmd != serveCmd {
		return nil
	}

	if err := logger.Init(enabled || debugFilePath != "", file); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("API Factory starting",
		logger.String("command", cmd.Name()),
		logger.String("version", version),
		logger.String("log_file", file))
	return nil
}
