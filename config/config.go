package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service. Everything has a local
// single-node default; a config file and NEWSRAG_* env vars override.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen string `mapstructure:"listen"`
	Debug  bool   `mapstructure:"debug"`
}

// QdrantConfig locates the vector index service.
type QdrantConfig struct {
	Host       string        `mapstructure:"host"`
	Port       string        `mapstructure:"port"`
	APIKey     string        `mapstructure:"api_key"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// URL builds the REST base URL of the index service.
func (q QdrantConfig) URL() string {
	return fmt.Sprintf("http://%s:%s", q.Host, q.Port)
}

func (q QdrantConfig) Validate() error {
	if strings.TrimSpace(q.Host) == "" || strings.TrimSpace(q.Port) == "" {
		return fmt.Errorf("qdrant.host and qdrant.port are required")
	}
	if strings.TrimSpace(q.Collection) == "" {
		return fmt.Errorf("qdrant.collection is required")
	}
	return nil
}

// RedisConfig locates the shared key-value store backing conversation
// history. URL wins over host/port when set.
type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	Host       string        `mapstructure:"host"`
	Port       string        `mapstructure:"port"`
	Pass       string        `mapstructure:"pass"`
	DB         int           `mapstructure:"db"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.URL) != "" {
		return nil
	}
	if strings.TrimSpace(r.Host) == "" || strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("redis.host and redis.port required when url is not provided")
	}
	return nil
}

// GeminiConfig configures the generative model. An empty API key is not an
// error: the service runs in permanent fallback mode.
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig configures the OpenAI-compatible embedding endpoint.
type EmbeddingConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func (e EmbeddingConfig) Validate() error {
	if strings.TrimSpace(e.BaseURL) == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if e.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be > 0")
	}
	return nil
}

// RetrievalConfig tunes nearest-neighbor search.
type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

func (r RetrievalConfig) Normalize() RetrievalConfig {
	if r.TopK <= 0 {
		r.TopK = 5
	}
	return r
}

// LoadConfig loads config from an optional file plus NEWSRAG_* env vars.
// A missing file is fine; the hardcoded defaults run a single local node.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	// Every key needs a default, even an empty one: viper only resolves env
	// vars for keys it already knows about.
	v.SetDefault("general.listen", ":8000")
	v.SetDefault("general.debug", false)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", "6333")
	v.SetDefault("qdrant.api_key", "")
	v.SetDefault("qdrant.collection", "news_articles")
	v.SetDefault("qdrant.timeout", 15*time.Second)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.pass", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.timeout", 5*time.Second)
	v.SetDefault("redis.session_ttl", 30*time.Minute)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", 30*time.Second)
	v.SetDefault("embedding.base_url", "http://localhost:8080")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("retrieval.top_k", 5)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("NEWSRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Retrieval = cfg.Retrieval.Normalize()

	if err := cfg.Qdrant.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Redis.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Embedding.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
