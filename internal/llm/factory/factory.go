package factory

import (
	"fmt"

	"github.com/newthinker/premia/internal/config"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/llm"
	"github.com/newthinker/premia/internal/llm/claude"
	"github.com/newthinker/premia/internal/llm/ollama"
	"github.com/newthinker/premia/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// name means the digest is disabled and returns (nil, nil).
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown LLM provider: %s", cfg.Provider))
	}
}
