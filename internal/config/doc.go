// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > YAML config >
// Environment variables > Defaults. It covers the solver range and budget used
// by both the batch CLI and the HTTP server, plus the server's own settings.
package config
