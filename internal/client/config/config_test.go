package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.ServerURL, "http://127.0.0.1:8080")
	assert.Equal(t, c.PushURL, "ws://127.0.0.1:8080/ws")
	assert.Empty(t, c.ActorID)
	assert.Empty(t, c.ActorToken)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c)
	assert.Equal(t, c.ServerURL, "http://127.0.0.1:8080")
	assert.Equal(t, c.PushURL, "ws://127.0.0.1:8080/ws")
}
