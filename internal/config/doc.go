// Package config loads and validates server configuration from the environment.
package config
