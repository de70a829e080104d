// Package config provides configuration loading and validation for the word
// clip service. Configuration is read from YAML; secrets and deployment paths
// may be supplied through the environment or a .env file instead.
package config
