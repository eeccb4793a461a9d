// Package config holds the runtime configuration structs for the runner
// and the provenance API server. Logging flags live on the root command.
package config

// RunnerConfig holds configuration for one orchestrated run.
type RunnerConfig struct {
	DescriptorPath string // Workflow descriptor document (JSON/YAML)
	RunTime        string // Optional run time ("YYYY-MM-DD HH:MM"), overrides the descriptor start
	Workers        int    // Timestamp worker pool size (1 = sequential, 0 = unlimited)
	DBPath         string // SQLite provenance database path ("" disables persistence, ":memory:" for testing)
}

// DefaultRunnerConfig returns sensible defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers: 1,
	}
}

// ServerConfig holds configuration for the provenance API server.
type ServerConfig struct {
	Addr   string // Listen address (default ":8080")
	DBPath string // SQLite provenance database path
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr: ":8080",
	}
}
