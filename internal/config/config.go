package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port               int            `yaml:"port"`
	GinMode            string         `yaml:"gin_mode"`
	LogLevel           string         `yaml:"log_level"`
	LogFormat          string         `yaml:"log_format"`
	CORSAllowedOrigins []string       `yaml:"cors_allowed_origins"`
	OutputDir          string         `yaml:"ndjson_output_dir"`
	MaxUploadMB        int64          `yaml:"max_upload_mb"`
	MetricsEnabled     bool           `yaml:"metrics_enabled"`
	ShutdownTimeout    time.Duration  `yaml:"shutdown_timeout"`
	Database           DatabaseConfig `yaml:"database"`

	// DotEnvLoaded reports whether a .env file was found in the working directory.
	DotEnvLoaded bool `yaml:"-"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // "postgres" or "sqlite"
	URL        string `yaml:"url"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Defaults returns the configuration used when neither the environment nor a YAML file says
// otherwise.
func Defaults() Config {
	return Config{
		Port:               8080,
		GinMode:            "release",
		LogLevel:           "info",
		LogFormat:          "json",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		OutputDir:          "./ndjson_output",
		MaxUploadMB:        32,
		MetricsEnabled:     true,
		ShutdownTimeout:    10 * time.Second,
		Database: DatabaseConfig{
			Driver:     "sqlite",
			Host:       "localhost",
			Port:       5432,
			SSLMode:    "disable",
			SQLitePath: "./daybook.db",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment, in
// increasing order of precedence. A .env file in the working directory is loaded first when
// present. yamlPath may be empty; CONFIG_FILE is used then.
func Load(yamlPath string) (*Config, error) {
	cfg := Defaults()

	// .env is optional, the process environment is enough
	if err := godotenv.Load(); err == nil {
		cfg.DotEnvLoaded = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if yamlPath == "" {
		yamlPath = os.Getenv("CONFIG_FILE")
	}
	if yamlPath != "" {
		if err := applyYAML(&cfg, yamlPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error

	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return err
	}
	cfg.GinMode = envString("GIN_MODE", cfg.GinMode)
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid GIN_MODE: %q", cfg.GinMode)
	}
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("LOG_FORMAT", cfg.LogFormat)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}
	cfg.OutputDir = envString("NDJSON_OUTPUT_DIR", cfg.OutputDir)

	maxUpload, err := envInt("MAX_UPLOAD_MB", int(cfg.MaxUploadMB))
	if err != nil {
		return err
	}
	cfg.MaxUploadMB = int64(maxUpload)

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED: %q", v)
		}
		cfg.MetricsEnabled = enabled
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %q", v)
		}
		cfg.ShutdownTimeout = d
	}

	db := &cfg.Database
	db.Driver = strings.ToLower(envString("DB_DRIVER", db.Driver))
	db.URL = envString("DATABASE_URL", db.URL)
	db.Host = envString("DB_HOST", db.Host)
	if db.Port, err = envInt("DB_PORT", db.Port); err != nil {
		return err
	}
	db.User = envString("DB_USER", db.User)
	db.Password = envString("DB_PASSWORD", db.Password)
	db.Name = envString("DB_NAME", db.Name)
	db.SSLMode = envString("DB_SSLMODE", db.SSLMode)
	db.SQLitePath = envString("SQLITE_PATH", db.SQLitePath)

	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// DSN returns the postgres connection string. DATABASE_URL wins over the discrete fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
