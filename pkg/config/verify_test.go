package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		cfg := &Config{}
		cfg.setDefaults()
		assert.NoError(t, VerifyAgainstEmbeddedSchema(cfg))
	})

	t.Run("missing listen", func(t *testing.T) {
		cfg := &Config{}
		cfg.setDefaults()
		cfg.Server.Listen = ""
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.listen is required")
	})

	t.Run("llm enabled without model", func(t *testing.T) {
		cfg := &Config{}
		cfg.setDefaults()
		cfg.LLM.Enabled = true
		cfg.LLM.Model = ""
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.model")
	})
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema()
	require.NotNil(t, schema)

	data, err := json.Marshal(schema)
	require.NoError(t, err)

	var parsed struct {
		Defs map[string]struct {
			Properties map[string]any `json:"properties"`
		} `json:"$defs"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Contains(t, parsed.Defs, "Config")
	for _, section := range []string{"server", "llm", "news", "papers", "extraction"} {
		assert.Contains(t, parsed.Defs["Config"].Properties, section)
	}
}
