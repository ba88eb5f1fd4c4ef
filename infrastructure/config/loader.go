// Package config loads freight-agent configuration files and builds domain
// settings from them.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/freight-agent/domain/config"
)

// Format represents a configuration file format.
type Format string

const (
	// FormatYAML is the YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is the JSON format.
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", config.ErrUnsupportedFormat, ext)
	}
}

// Loader reads service configuration over DefaultAppConfig, so omitted
// sections keep their defaults.
type Loader struct {
	expandEnv   bool
	strictEnv   bool
	validate    bool
	knownFields bool
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithEnvExpansion enables or disables ${VAR} expansion.
func WithEnvExpansion(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.expandEnv = enabled
	}
}

// WithStrictEnv fails on references to unset variables without a default.
func WithStrictEnv(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.strictEnv = enabled
	}
}

// WithValidation enables or disables configuration validation.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.validate = enabled
	}
}

// WithKnownFields rejects keys that do not map to a configuration field.
func WithKnownFields(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.knownFields = enabled
	}
}

// NewLoader creates a loader that expands env vars, rejects unknown keys and validates.
func NewLoader() *Loader {
	return NewLoaderWithOptions()
}

// NewLoaderWithOptions creates a loader with the specified options.
func NewLoaderWithOptions(opts ...LoaderOption) *Loader {
	l := &Loader{expandEnv: true, validate: true, knownFields: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile loads configuration from a .yaml, .yml or .json file.
func (l *Loader) LoadFile(path string) (*config.AppConfig, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to access config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", config.ErrInvalidFormat, path)
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.LoadBytes(data, format)
}

// Load loads configuration from a reader.
func (l *Loader) Load(r io.Reader, format Format) (*config.AppConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return l.LoadBytes(data, format)
}

// LoadString loads configuration from a string.
func (l *Loader) LoadString(content string, format Format) (*config.AppConfig, error) {
	return l.LoadBytes([]byte(content), format)
}

// LoadBytes loads configuration from bytes.
func (l *Loader) LoadBytes(data []byte, format Format) (*config.AppConfig, error) {
	if l.expandEnv {
		expanded, err := newEnvExpander(l.strictEnv).Expand(string(data))
		if err != nil {
			return nil, err
		}
		data = []byte(expanded)
	}

	cfg := config.DefaultAppConfig()
	if err := l.decode(data, format, cfg); err != nil {
		return nil, err
	}

	if l.validate {
		if errs := config.NewValidator().Validate(cfg); errs.HasErrors() {
			return nil, fmt.Errorf("%w: %v", config.ErrValidationFailed, errs)
		}
	}
	return cfg, nil
}

func (l *Loader) decode(data []byte, format Format, cfg *config.AppConfig) error {
	var err error
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(l.knownFields)
		// An empty document leaves the defaults untouched.
		if err = dec.Decode(cfg); errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if l.knownFields {
			dec.DisallowUnknownFields()
		}
		err = dec.Decode(cfg)
	default:
		return fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
	}
	return nil
}
