// Package config loads and validates application configuration from
// environment variables and an optional config.yaml file.
package config
