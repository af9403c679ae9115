package config

import "time"

// GatewayConfig holds connection settings for the management API gateway.
type GatewayConfig struct {
	BaseURL        string `json:"base_url"`                  // Gateway root, e.g. "https://api-gw-service-nmn.local/apis"
	TokenPath      string `json:"token_path,omitempty"`      // File containing a bearer token; empty means unauthenticated
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"` // Per-request timeout
}

// Timeout returns the per-request timeout as a duration.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// WaitConfig holds defaults for wait loops started from the CLI.
// Flags override these per invocation.
type WaitConfig struct {
	TimeoutSeconds      int `json:"timeout_seconds,omitempty"`       // Overall deadline for a wait
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty"` // Delay between polling rounds
	Retries             int `json:"retries,omitempty"`               // Extra timeout windows after the first
}

// Timeout returns the overall wait deadline as a duration.
func (w WaitConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// PollInterval returns the polling delay as a duration.
func (w WaitConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds) * time.Second
}

// JournalConfig locates the operation journal database.
type JournalConfig struct {
	Path string `json:"path,omitempty"` // SQLite file; empty means the xdg data default
}

// WorkspaceConfig locates per-operation scratch directories.
type WorkspaceConfig struct {
	Root string `json:"root,omitempty"` // Parent directory; empty means the xdg cache default
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // trace, debug, info, warn, error
	Format string `json:"format,omitempty"` // "text" or "json"
}

// Config is the top-level toolkit configuration.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Wait      WaitConfig      `json:"wait"`
	Journal   JournalConfig   `json:"journal,omitempty"`
	Workspace WorkspaceConfig `json:"workspace,omitempty"`
	Log       LogConfig       `json:"log,omitempty"`
}
