// Package config loads process configuration from the environment with
// documented defaults, an optional .env file, and an optional YAML overlay.
//
// All values are read once at process start via Load. Components receive
// their configuration sections explicitly; nothing in this package is
// consulted after startup.
package config
