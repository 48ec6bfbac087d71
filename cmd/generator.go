package cmd

import (
	"github.com/pixcelsafe/pixcelsafe/internal/config"
	"github.com/pixcelsafe/pixcelsafe/internal/gemini"
	"github.com/pixcelsafe/pixcelsafe/internal/ollama"
	"github.com/pixcelsafe/pixcelsafe/internal/openai"
	"github.com/pixcelsafe/pixcelsafe/internal/providers"
)

func newGenerator(cfg config.Enrichment) providers.Generator {
	switch cfg.Generator {
	case config.GeneratorGemini:
		return gemini.New(cfg.Model)
	case config.GeneratorOpenAI:
		return openai.New(cfg.Model)
	case config.GeneratorOllama:
		return ollama.New(cfg.OllamaURL, cfg.Model)
	default:
		return providers.NewPlaceholder(cfg.Delay)
	}
}
