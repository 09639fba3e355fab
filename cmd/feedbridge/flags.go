package main

import (
	"flag"
	"fmt"
	"time"
)

// CLIConfig holds parsed command-line flags
type CLIConfig struct {
	ConfigPath      string
	Validate        bool
	ShowVersion     bool
	ShutdownTimeout time.Duration
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to YAML configuration file (optional)")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 15*time.Second,
		"Grace period for in-flight work on shutdown")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown-timeout must be positive")
	}
	return nil
}
