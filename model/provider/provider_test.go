package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/config"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/model"
)

func TestNew(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		m, err := New(config.ModelConfig{Provider: config.ProviderOpenAI, Model: "gpt-4o"})
		require.NoError(t, err)
		assert.Equal(t, "openai", m.Info().Provider)
		assert.Equal(t, "gpt-4o", m.Info().Name)
	})

	t.Run("anthropic", func(t *testing.T) {
		m, err := New(config.ModelConfig{Provider: config.ProviderAnthropic, Model: "claude-3-5-haiku-latest"})
		require.NoError(t, err)
		assert.Equal(t, "anthropic", m.Info().Provider)
	})

	t.Run("mock echoes", func(t *testing.T) {
		m, err := New(config.ModelConfig{Provider: config.ProviderMock})
		require.NoError(t, err)
		resp, err := m.Generate(context.Background(), model.Request{Messages: []core.Message{core.NewUserMessage("ping")}})
		require.NoError(t, err)
		assert.Equal(t, "Mock response to: ping", resp.Message.Content)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(config.ModelConfig{Provider: "llama"})
		assert.ErrorContains(t, err, "llama")
	})
}
