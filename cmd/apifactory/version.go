package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Octrafic/api-factory/internal/cli"
	"github.com/Octrafic/api-factory/internal/config"
	"github.com/Octrafic/api-factory/internal/updater"
	"github.com/spf13/cobra"
)

var (
	checkUpdate bool
	forceConfig bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(cli.RenderLogo())
		fmt.Printf("apifactory %s\n", version)
		if !checkUpdate {
			return nil
		}

		info, err := updater.CheckLatestVersion(cmd.Context(), version)
		if err != nil {
			return err
		}
		if info.IsNewer {
			fmt.Println(warning(fmt.Sprintf("A new version is available: %s", info.LatestVersion)))
			if info.HTMLURL != "" {
				fmt.Println(muted(info.HTMLURL))
			}
			return nil
		}
		fmt.Println(success("✓ Up to date"))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "apifactory.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil && !forceConfig {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Println(success("✓ Wrote " + path))
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&checkUpdate, "check", false, "Check GitHub for a newer release")

	configInitCmd.Flags().BoolVarP(&forceConfig, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
