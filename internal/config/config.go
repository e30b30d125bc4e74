package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Categories Categories   `yaml:"categories"`
	Keywords   []KeywordSet `yaml:"keywords"`
	Classifier Classifier   `yaml:"classifier"`
	Sources    Sources      `yaml:"sources"`
	Storage    Storage      `yaml:"storage"`
	Review     Review       `yaml:"review"`
	Server     Server       `yaml:"server"`
}

// Categories defines the closed category set. Order is the tie-break
// priority: when two categories score equally, the one listed first wins.
type Categories struct {
	Order    []string `yaml:"order"`
	Fallback string   `yaml:"fallback"`
}

// KeywordSet maps one category to its keyword terms. Declared as a list, not
// a map, so table order (and with it tie-break defaults) is deterministic.
type KeywordSet struct {
	Category string   `yaml:"category"`
	Terms    []string `yaml:"terms"`
}

type Classifier struct {
	Provider            string  `yaml:"provider"` // "keyword" or "llm"
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	Workers             int     `yaml:"workers"`
	LLM                 LLM     `yaml:"llm"`
}

type LLM struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	OllamaURL      string `yaml:"ollama_url"`
	OpenAIModel    string `yaml:"openai_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxFailures    int    `yaml:"max_failures"`
	MaxTokens      int    `yaml:"max_tokens"`
}

type Sources struct {
	Boards []Board `yaml:"boards"`
	Feeds  []Feed  `yaml:"feeds"`
}

// Board describes one community board list page. All site-specific knowledge
// lives here as CSS selectors; the scraping code is shared.
type Board struct {
	Name      string    `yaml:"name"`
	BaseURL   string    `yaml:"base_url"`
	PageURL   string    `yaml:"page_url"` // printf template, %d = page number
	Selectors Selectors `yaml:"selectors"`
}

type Selectors struct {
	Row       string `yaml:"row"`
	Title     string `yaml:"title"`
	Link      string `yaml:"link"`
	Views     string `yaml:"views"`
	Likes     string `yaml:"likes"`
	Date      string `yaml:"date"`
	Thumbnail string `yaml:"thumbnail"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Storage struct {
	DataDir       string `yaml:"data_dir"`
	BatchSize     int    `yaml:"batch_size"`
	RetentionDays int    `yaml:"retention_days"`
	ScoreWeight   int    `yaml:"score_weight"`
	MaxAgeDays    int    `yaml:"max_age_days"`
}

type Review struct {
	OutputDir string `yaml:"output_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for memeboard.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "memeboard")
}

// DataDir returns the XDG data directory for memeboard.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "memeboard")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/memeboard/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'memeboard init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Categories: Categories{
			Order:    []string{"politics", "sports", "celebrity", "stock", "game", "issue"},
			Fallback: "issue",
		},
		Classifier: Classifier{
			Provider:            "keyword",
			ConfidenceThreshold: 0.1,
			Workers:             4,
			LLM: LLM{
				Provider:       "ollama",
				Model:          "qwen2.5:7b",
				OllamaURL:      "http://localhost:11434",
				OpenAIModel:    "gpt-4o-mini",
				APIKeyEnv:      "OPENAI_API_KEY",
				TimeoutSeconds: 30,
				MaxFailures:    3,
				MaxTokens:      256,
			},
		},
		Storage: Storage{
			BatchSize:     50,
			RetentionDays: 7,
			ScoreWeight:   10,
			MaxAgeDays:    7,
		},
		Review: Review{OutputDir: "output"},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Categories.Order) == 0 {
		return fmt.Errorf("categories.order must not be empty")
	}
	if !c.HasCategory(c.Categories.Fallback) {
		return fmt.Errorf("fallback category %q is not in categories.order", c.Categories.Fallback)
	}
	for _, ks := range c.Keywords {
		if !c.HasCategory(ks.Category) {
			return fmt.Errorf("keyword table references unknown category %q", ks.Category)
		}
	}
	if t := c.Classifier.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("confidence_threshold must be within [0,1], got %v", t)
	}
	return nil
}

// HasCategory reports whether name belongs to the configured category set.
func (c *Config) HasCategory(name string) bool {
	for _, cat := range c.Categories.Order {
		if cat == name {
			return true
		}
	}
	return false
}

// LLMTimeout returns the per-call timeout for the remote classifier.
func (c *Config) LLMTimeout() time.Duration {
	s := c.Classifier.LLM.TimeoutSeconds
	if s <= 0 {
		s = 30
	}
	return time.Duration(s) * time.Second
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
