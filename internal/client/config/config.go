// Package config handles configuration for the sync client: defaults, an
// optional JSON overlay, then command-line flags, later sources winning.
package config

// Config holds runtime settings for the sync client.
//
// Fields:
//   - ServerURL: base URL of the record server's HTTP API.
//   - PushURL: websocket URL of the push-notification channel.
//   - ActorID: identity of the already-authenticated actor.
//   - ActorToken: bearer token presented on every call.
type Config struct {
	ServerURL  string
	PushURL    string
	ActorID    string
	ActorToken string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.PushURL = "ws://127.0.0.1:8080/ws"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
