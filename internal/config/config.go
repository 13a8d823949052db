// Package config loads psfind settings from the environment and an optional
// repositories file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/query"
)

// EnvPrefix prefixes every environment variable read by [Load].
const EnvPrefix = "PSFIND_"

// DefaultRepository is the repository used when no file is configured.
var DefaultRepository = query.Repository{
	Name:     "PSGallery",
	BaseURL:  "https://www.powershellgallery.com/api/v2",
	Protocol: query.V2,
}

// Config holds all psfind settings.
type Config struct {
	Repository       string        `env:"REPOSITORY" envDefault:"PSGallery" validate:"required"`
	RepositoriesFile string        `env:"REPOSITORIES_FILE"`
	Workers          int           `env:"WORKERS" envDefault:"8" validate:"min=1,max=64"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"30s"`
	Prerelease       bool          `env:"PRERELEASE" envDefault:"false"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Repositories is filled from RepositoriesFile, or holds only
	// DefaultRepository when no file is set.
	Repositories []query.Repository `env:"-"`
}

// repositoriesFile is the on-disk shape of the repositories file:
//
//	[[repository]]
//	name = "PSGallery"
//	url = "https://www.powershellgallery.com/api/v2"
//	protocol = "v2"
type repositoriesFile struct {
	Repository []repositoryEntry `toml:"repository" validate:"min=1,dive"`
}

type repositoryEntry struct {
	Name     string `toml:"name" validate:"required"`
	URL      string `toml:"url" validate:"required,url"`
	Protocol string `toml:"protocol"`
}

// Load reads configuration from PSFIND_* environment variables and a .env
// file in the working directory, then loads the repositories file if one is
// configured.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if cfg.RepositoriesFile != "" {
		repos, err := LoadRepositories(cfg.RepositoriesFile)
		if err != nil {
			return nil, err
		}
		cfg.Repositories = repos
	} else {
		cfg.Repositories = []query.Repository{DefaultRepository}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks cfg using struct tags plus rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if cfg.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second")
	}
	if _, err := cfg.Lookup(cfg.Repository); err != nil {
		return err
	}
	return nil
}

// LoadRepositories parses a TOML repositories file.
func LoadRepositories(path string) ([]query.Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repositories file: %w", err)
	}
	return ParseRepositories(data)
}

// ParseRepositories parses TOML repository definitions. Protocol defaults to
// v2. Names must be unique, ignoring case.
func ParseRepositories(data []byte) ([]query.Repository, error) {
	var file repositoriesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse repositories file: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, formatValidationError(err)
	}

	seen := make(map[string]bool)
	repos := make([]query.Repository, 0, len(file.Repository))
	for _, e := range file.Repository {
		key := strings.ToLower(e.Name)
		if seen[key] {
			return nil, errors.New(errors.ErrCodeValidation, "duplicate repository %q", e.Name)
		}
		seen[key] = true

		if err := errors.ValidateURL(e.URL); err != nil {
			return nil, fmt.Errorf("repository %q: %w", e.Name, err)
		}
		protocol := query.Protocol(strings.ToLower(e.Protocol))
		switch protocol {
		case "":
			protocol = query.V2
		case query.V2, query.V3:
		default:
			return nil, errors.New(errors.ErrCodeValidation, "repository %q: unknown protocol %q", e.Name, e.Protocol)
		}
		repos = append(repos, query.Repository{
			Name:     e.Name,
			BaseURL:  strings.TrimRight(e.URL, "/"),
			Protocol: protocol,
		})
	}
	return repos, nil
}

// Lookup returns the configured repository called name, ignoring case.
func (cfg *Config) Lookup(name string) (query.Repository, error) {
	for _, r := range cfg.Repositories {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return query.Repository{}, errors.New(errors.ErrCodeValidation, "unknown repository %q", name)
}

// formatValidationError formats validation errors into readable messages.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var messages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a URL", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
		}
	}
	return errors.New(errors.ErrCodeValidation, "validation errors: %s", strings.Join(messages, "; "))
}
