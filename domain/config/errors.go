package config

import "errors"

// Loading errors. Callers match them with errors.Is; the wrapped message names
// the offending path, key or variable.
var (
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrInvalidFormat     = errors.New("invalid configuration format")
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
	ErrMissingEnvVar     = errors.New("required environment variable not set")
)

// ErrValidationFailed wraps the ValidationErrors of a rejected configuration.
var ErrValidationFailed = errors.New("configuration validation failed")

// ErrBuildFailed marks settings that validate individually but cannot be
// combined, such as static offers for an unknown provider family.
var ErrBuildFailed = errors.New("failed to build settings from configuration")
