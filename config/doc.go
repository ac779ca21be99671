// Package config loads the block segmenter settings.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// BLOCKSEG_* environment variables (optionally from a .env file). Command-line
// flags are applied last by the CLI.
package config
