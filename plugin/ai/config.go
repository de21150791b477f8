package ai

import (
	"github.com/pkg/errors"

	"github.com/idea2prd/idea2prd/internal/profile"
)

// Config represents the LLM gateway configuration. It is passed explicitly;
// nothing in this package reads the process environment.
type Config struct {
	Enabled bool

	BaseURL    string // https://openrouter.ai/api/v1
	APIKey     string
	Model      string // chat + workflow generation
	ImageModel string // scene illustration generation

	// Referer and Title are forwarded as the HTTP-Referer and X-Title
	// headers OpenRouter uses for app attribution.
	Referer string
	Title   string

	// MaxConcurrent caps in-flight LLM calls across the process.
	MaxConcurrent int64
}

// NewConfigFromProfile creates the gateway config from the server profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		Enabled:       p.IsAIEnabled(),
		BaseURL:       p.OpenRouterURL,
		APIKey:        p.OpenRouterAPIKey,
		Model:         p.AIModel,
		ImageModel:    p.AIImageModel,
		Referer:       p.InstanceURL,
		Title:         "idea2prd",
		MaxConcurrent: 4,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.APIKey == "" {
		return errors.New("OpenRouter API key is required")
	}
	if c.BaseURL == "" {
		return errors.New("OpenRouter base URL is required")
	}
	if c.Model == "" {
		return errors.New("chat model is required")
	}
	return nil
}
