// Package config loads run settings from a YAML file, GREGOR_* environment
// variables and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultFileName is the config file looked up in the user config directory.
const DefaultFileName = "gregor_anvil_automation.yaml"

// Config holds the settings of a validation run. Environment variables
// override file values.
type Config struct {
	GCPBucketName string `yaml:"gcp_bucket_name" env:"GREGOR_GCP_BUCKET_NAME" validate:"required"`
	SchemaDir     string `yaml:"schema_dir" env:"GREGOR_SCHEMA_DIR" validate:"omitempty,dir"`
	Workers       int    `yaml:"workers" env:"GREGOR_WORKERS" env-default:"4" validate:"gte=1"`
	LogLevel      string `yaml:"log_level" env:"GREGOR_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	TraceFile     string `yaml:"trace_file" env:"GREGOR_TRACE_FILE"`
}

// DefaultPath returns ~/.config/gregor_anvil_automation.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, ".config", DefaultFileName)
}

// Load reads the config file at path, then applies environment overrides.
// A missing file is not an error; settings then come from the environment
// and defaults alone. Load does not validate; call Validate once all
// overrides are applied.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return &cfg, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from environment: %w", err)
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the settings and reports every invalid one.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "dir":
		return fmt.Sprintf("%s %q is not a directory", fe.Field(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LoadDotEnv loads .env.<user> from dir, falling back to .env. Variables
// already set in the environment are kept. It returns the file loaded, or
// "" when neither exists.
func LoadDotEnv(dir string) (string, error) {
	var candidates []string
	if u, err := user.Current(); err == nil && u.Username != "" {
		candidates = append(candidates, filepath.Join(dir, ".env."+filepath.Base(u.Username)))
	}
	candidates = append(candidates, filepath.Join(dir, ".env"))

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("load %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}
