// Package config handles configuration loading, parsing, and validation
// from a .env file, an optional config.yaml and TASKFLOW_-prefixed environment
// variables. It provides type-safe access to the settings needed by the API
// server and the worker while keeping configuration details separate from
// business logic.
package config
