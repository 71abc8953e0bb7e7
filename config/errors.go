package config

import (
	"fmt"
)

// ConfigurationError means that the command line could not be parsed
type ConfigurationError struct {
	Cause error
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("invalid command line: %s", e.Cause)
}

func (e ConfigurationError) Unwrap() error {
	return e.Cause
}

// ExitCode implements run.WithExitCode
func (ConfigurationError) ExitCode() int {
	return 2
}

// ConfigFileNotFoundError means that the configuration file does not exist
type ConfigFileNotFoundError struct {
	Path string
}

func (e ConfigFileNotFoundError) Error() string {
	return fmt.Sprintf("configuration %s not found", e.Path)
}

// Exit is returned by Parse after --help or --version has been served. The
// process should exit successfully without doing anything else.
type Exit struct {
	Reason string
}

func (e Exit) Error() string {
	return e.Reason
}

// ExitCode implements run.WithExitCode
func (Exit) ExitCode() int {
	return 0
}
