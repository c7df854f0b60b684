// Package config handles configuration loading, parsing, and validation
// from a YAML file and FEEDER_-prefixed environment variables. It yields one
// immutable Config value that is constructed at startup and handed to every
// component, so no component reads process-wide settings on its own.
package config
