package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Product Product `yaml:"product"`
	LLM     LLM     `yaml:"llm"`
	Search  Search  `yaml:"search"`
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Product names the company whose customers and market are being analyzed.
// It is injected into classification prompts and default search queries.
type Product struct {
	Name string `yaml:"name"`
}

type LLM struct {
	Provider        string  `yaml:"provider"` // mistral, openai, gemini, ollama
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	MaxTokens       int     `yaml:"max_tokens"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	ClassifyTemp    float64 `yaml:"classify_temperature"`
	BriefTemp       float64 `yaml:"brief_temperature"`
	EmbedJSONSchema bool    `yaml:"embed_json_schema"`
}

type Search struct {
	Provider       string        `yaml:"provider"` // brave, feeds, both
	BaseURL        string        `yaml:"base_url"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	ResultCount    int           `yaml:"result_count"`
	Freshness      string        `yaml:"freshness"`
	SearchLang     string        `yaml:"search_lang"`
	Concurrency    int           `yaml:"concurrency"`
	FetchContent   bool          `yaml:"fetch_content"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Feeds          []SearchFeed  `yaml:"feeds"`
	Queries        []SearchQuery `yaml:"queries"`
}

// SearchFeed is an RSS/Atom endpoint whose URL contains a {query} placeholder.
type SearchFeed struct {
	Name        string `yaml:"name"`
	URLTemplate string `yaml:"url"`
}

// SearchQuery is a named preset search.
type SearchQuery struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Query string `yaml:"query"`
}

type Storage struct {
	Driver      string `yaml:"driver"` // sqlite, redis, memory
	DataDir     string `yaml:"data_dir"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPwdEnv string `yaml:"redis_password_env"`
	KeyPrefix   string `yaml:"key_prefix"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for vocintel.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "vocintel")
}

// DataDir returns the XDG data directory for vocintel.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "vocintel")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/vocintel/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'vocintel init' to create a default config",
		xdgConfig,
	)
}

// LoadEnv loads API keys from .env files next to the config and in the
// working directory. Variables already set in the environment win.
func LoadEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Product: Product{Name: "Mistral AI"},
		LLM: LLM{
			Provider:        "mistral",
			Model:           "mistral-small-latest",
			APIKeyEnv:       "MISTRAL_API_KEY",
			MaxTokens:       2048,
			TimeoutSeconds:  120,
			ClassifyTemp:    0.1,
			BriefTemp:       0.3,
			EmbedJSONSchema: true,
		},
		Search: Search{
			Provider:       "brave",
			BaseURL:        "https://api.search.brave.com",
			APIKeyEnv:      "BRAVE_API_KEY",
			ResultCount:    5,
			Concurrency:    1,
			TimeoutSeconds: 30,
		},
		Storage: Storage{
			Driver:    "sqlite",
			RedisAddr: "localhost:6379",
		},
		Server:  Server{Host: "127.0.0.1", Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Search.Queries) == 0 {
		cfg.Search.Queries = DefaultQueries(cfg.Product.Name)
	}

	return cfg, nil
}

// DefaultQueries returns the preset searches for a product.
func DefaultQueries(product string) []SearchQuery {
	return []SearchQuery{
		{ID: "general", Label: "General Mentions", Query: product},
		{ID: "vs_openai", Label: "vs OpenAI", Query: product + " vs OpenAI GPT"},
		{ID: "vs_anthropic", Label: "vs Anthropic", Query: product + " vs Claude Anthropic"},
		{ID: "vs_llama", Label: "vs Llama", Query: product + " vs Llama Meta"},
		{ID: "reviews", Label: "Model Reviews", Query: product + " model review"},
		{ID: "api", Label: "API Experience", Query: product + " API developer experience"},
		{ID: "pricing", Label: "Pricing", Query: product + " pricing cost"},
		{ID: "reddit", Label: "Reddit Discussions", Query: "site:reddit.com " + product},
		{ID: "hackernews", Label: "Hacker News", Query: "site:news.ycombinator.com " + product},
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// APIKey returns the value of the environment variable named by envName.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
