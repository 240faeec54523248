package config

import (
	"encoding/json"
	"os"

	"github.com/vterekhov/recordsync/internal/flagx"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling.
type jsonConfig struct {
	ServerURL  string `json:"server_url"`
	PushURL    string `json:"push_url"`
	ActorID    string `json:"actor_id"`
	ActorToken string `json:"actor_token"`
}

// parseJSON overlays Config with values from the JSON file named by -c or
// -config, if any. Empty JSON fields leave the current value in place.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.PushURL != "" {
		cfg.PushURL = jc.PushURL
	}
	if jc.ActorID != "" {
		cfg.ActorID = jc.ActorID
	}
	if jc.ActorToken != "" {
		cfg.ActorToken = jc.ActorToken
	}
}
