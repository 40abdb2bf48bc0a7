package cmd

import (
	"github.com/asgardeo/mcp-launcher/internal/config"
	"github.com/asgardeo/mcp-launcher/internal/logger"
)

// operationError prefixes an error with the operation that failed.
type operationError struct {
	op  string
	err error
}

func (e *operationError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *operationError) Unwrap() error {
	return e.err
}

func failed(op string, err error) error {
	return &operationError{op: op, err: err}
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if installDir != "" {
		cfg.InstallDir = installDir
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	return cfg, nil
}
