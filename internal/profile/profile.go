package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where idea2prd stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your idea2prd instance.
	InstanceURL string

	// AI configuration. The gateway client receives these through an
	// explicit config struct; nothing below this package reads the process
	// environment.
	AIEnabled        bool   // IDEA2PRD_AI_ENABLED
	OpenRouterAPIKey string // IDEA2PRD_OPENROUTER_API_KEY
	OpenRouterURL    string // IDEA2PRD_OPENROUTER_URL (default: https://openrouter.ai/api/v1)
	AIModel          string // IDEA2PRD_AI_MODEL (default: anthropic/claude-3.5-sonnet)
	AIImageModel     string // IDEA2PRD_AI_IMAGE_MODEL (default: google/gemini-2.5-flash-preview-image)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.OpenRouterAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from IDEA2PRD_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("IDEA2PRD_AI_ENABLED") == "true"
	p.OpenRouterAPIKey = os.Getenv("IDEA2PRD_OPENROUTER_API_KEY")
	p.OpenRouterURL = getEnvOrDefault("IDEA2PRD_OPENROUTER_URL", "https://openrouter.ai/api/v1")
	p.AIModel = getEnvOrDefault("IDEA2PRD_AI_MODEL", "anthropic/claude-3.5-sonnet")
	p.AIImageModel = getEnvOrDefault("IDEA2PRD_AI_IMAGE_MODEL", "google/gemini-2.5-flash-preview-image")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.Driver == "sqlite" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("idea2prd_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	return nil
}
