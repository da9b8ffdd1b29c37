package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Octrafic/api-factory/internal/cli"
	"github.com/Octrafic/api-factory/internal/client"
	"github.com/Octrafic/api-factory/internal/core/auth"
	"github.com/spf13/cobra"
)

var (
	serverURL     string
	watch         bool
	watchInterval time.Duration
	downloadPath  string

	authType     string
	authToken    string
	authKey      string
	authValue    string
	authLocation string
	authUser     string
	authPass     string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.xlsx>",
	Short: "Upload a workbook to a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		result, err := c.Upload(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(success("✓ " + result.Message))
		fmt.Printf("  Task: %s\n", accent(result.TaskID))

		if watch {
			return watchTask(cmd.Context(), c, result.TaskID)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <task_id>",
	Short: "Show the state and log of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if watch {
			return watchTask(cmd.Context(), c, args[0])
		}

		status, err := c.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printStatus(status)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <task_id> <postman|pytest>",
	Short: "Download a generated artifact",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		name, err := c.Download(cmd.Context(), args[0], args[1], &buf)
		if err != nil {
			return err
		}

		target := downloadPath
		if target == "" {
			target = filepath.Base(name)
		}
		if err := os.WriteFile(target, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		fmt.Println(success("✓ Saved " + target))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{uploadCmd, statusCmd, downloadCmd} {
		cmd.Flags().StringVarP(&serverURL, "server", "s", "", "Server URL (overrides client.server_url)")

		cmd.Flags().StringVar(&authType, "auth", "", "Authentication type (none|bearer|apikey|basic)")
		cmd.Flags().StringVar(&authToken, "token", "", "Bearer token")
		cmd.Flags().StringVar(&authKey, "key", "", "API key name (e.g., X-API-Key)")
		cmd.Flags().StringVar(&authValue, "value", "", "API key value")
		cmd.Flags().StringVar(&authLocation, "location", "header", "API key location (header|query)")
		cmd.Flags().StringVar(&authUser, "user", "", "Username for basic auth")
		cmd.Flags().StringVar(&authPass, "pass", "", "Password for basic auth")
	}

	for _, cmd := range []*cobra.Command{uploadCmd, statusCmd} {
		cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the task until it finishes")
		cmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "Polling interval for --watch")
	}

	downloadCmd.Flags().StringVarP(&downloadPath, "output", "o", "", "Output file (default: name suggested by the server)")
}

// newClient builds a client from the config, with flags taking precedence.
func newClient() (*client.Client, error) {
	creds := cfg.Auth
	if authType != "" {
		creds = auth.Credentials{
			Type:     authType,
			Token:    authToken,
			Key:      authKey,
			Value:    authValue,
			Location: authLocation,
			User:     authUser,
			Pass:     authPass,
		}
	}
	provider, err := auth.New(creds)
	if err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}

	url := cfg.Client.ServerURL
	if serverURL != "" {
		url = serverURL
	}
	return client.New(url, provider, cfg.Client.Timeout), nil
}

func watchTask(ctx context.Context, c *client.Client, taskID string) error {
	fetch := func(ctx context.Context) (*client.TaskStatus, error) {
		return c.Status(ctx, taskID)
	}

	status, err := cli.Watch(ctx, taskID, fetch, watchInterval)
	if err != nil {
		return err
	}
	if status != nil && status.Status == "failed" {
		return fmt.Errorf("task %s failed", taskID)
	}
	return nil
}

func printStatus(s *client.TaskStatus) {
	state := s.Status
	switch s.Status {
	case "completed":
		state = success(state)
	case "failed":
		state = failure(state)
	default:
		state = warning(state)
	}
	fmt.Printf("%s %s (%s)\n", accent("Task"), s.TaskID, state)

	for _, line := range s.Logs {
		switch {
		case strings.HasPrefix(line, "WARNING:"):
			fmt.Println("  " + warning(line))
		case strings.HasPrefix(line, "ERROR:"):
			fmt.Println("  " + failure(line))
		default:
			fmt.Println("  " + muted(line))
		}
	}

	if len(s.ArtifactsReady) > 0 {
		fmt.Printf("%s %s\n", accent("Artifacts:"), strings.Join(s.ArtifactsReady, ", "))
	}
}
