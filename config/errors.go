package config

import "github.com/pkg/errors"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfig is returned by Validate. The wrapping message names the
	// offending setting.
	ErrInvalidConfig = errors.New("invalid configuration")
)
