package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Octrafic/api-factory/internal/core/auth"
	"gopkg.in/yaml.v3"
)

// Task store backends accepted in storage.task_store.
var TaskStores = []string{"memory", "file", "sqlite", "postgres", "mysql"}

// Config holds the application configuration
type Config struct {
	Server  ServerConfig     `yaml:"server"`
	Storage StorageConfig    `yaml:"storage"`
	Auth    auth.Credentials `yaml:"auth"`
	Log     LogConfig        `yaml:"log"`
	Client  ClientConfig     `yaml:"client"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	ArtifactsDir string `yaml:"artifacts_dir"`
	TaskStore    string `yaml:"task_store"`
	DSN          string `yaml:"dsn"`
}

type LogConfig struct {
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
}

type ClientConfig struct {
	ServerURL string        `yaml:"server_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			AllowedOrigins:  []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			MaxUploadMB:     20,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			ArtifactsDir: "artifacts_storage",
			TaskStore:    "file",
		},
		Auth: auth.Credentials{Type: "none"},
		Client: ClientConfig{
			ServerURL: "http://localhost:8000",
			Timeout:   30 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// APIFACTORY_* environment overrides. An empty or missing path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults restores defaults for fields a config file blanked out.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.AllowedOrigins == nil {
		c.Server.AllowedOrigins = def.Server.AllowedOrigins
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = def.Server.MaxUploadMB
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Storage.ArtifactsDir == "" {
		c.Storage.ArtifactsDir = def.Storage.ArtifactsDir
	}
	if c.Storage.TaskStore == "" {
		c.Storage.TaskStore = def.Storage.TaskStore
	}
	if c.Auth.Type == "" {
		c.Auth.Type = def.Auth.Type
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = def.Client.ServerURL
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = def.Client.Timeout
	}
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := GetEnv(key); v != "" {
			*dst = v
		}
	}

	setString("addr", &c.Server.Addr)
	setString("artifacts_dir", &c.Storage.ArtifactsDir)
	setString("task_store", &c.Storage.TaskStore)
	setString("dsn", &c.Storage.DSN)
	setString("auth_type", &c.Auth.Type)
	setString("auth_token", &c.Auth.Token)
	setString("auth_key", &c.Auth.Key)
	setString("auth_value", &c.Auth.Value)
	setString("auth_location", &c.Auth.Location)
	setString("auth_user", &c.Auth.User)
	setString("auth_pass", &c.Auth.Pass)
	setString("log_file", &c.Log.File)
	setString("server_url", &c.Client.ServerURL)

	if v := GetEnv("allowed_origins"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	if v := GetEnv("max_upload_mb"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", GetEnvVarName("max_upload_mb"), err)
		}
		c.Server.MaxUploadMB = n
	}
	if v := GetEnv("debug"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", GetEnvVarName("debug"), err)
		}
		c.Log.Debug = b
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	known := false
	for _, s := range TaskStores {
		if c.Storage.TaskStore == s {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("invalid task store: %s (valid: %s)", c.Storage.TaskStore, strings.Join(TaskStores, ", "))
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if _, err := auth.New(c.Auth); err != nil {
		return err
	}
	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// GetEnvVarName returns the environment variable name for a config key
func GetEnvVarName(key string) string {
	return "APIFACTORY_" + strings.ToUpper(key)
}

// GetEnv retrieves an environment variable with the APIFACTORY_ prefix
func GetEnv(key string) string {
	return os.Getenv(GetEnvVarName(key))
}
