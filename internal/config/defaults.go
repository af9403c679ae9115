package config

// DefaultConfig returns the built-in defaults applied before any config file
// is merged in.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BaseURL:        "https://api-gw-service-nmn.local/apis",
			TimeoutSeconds: 30,
		},
		Wait: WaitConfig{
			TimeoutSeconds:      600,
			PollIntervalSeconds: 5,
			Retries:             0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
