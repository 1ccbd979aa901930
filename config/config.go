package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"5210"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	MongoURI            string `env:"MONGO_URI"`
	MongoDB             string `env:"MONGO_DB" envDefault:"intervuo"`
	MongoForceTLSConfig bool   `env:"MONGO_FORCE_TLS_CONFIG"`
	MongoInsecureTLS    bool   `env:"MONGO_INSECURE_TLS"`
	PostgresURI         string `env:"POSTGRES_URI"`
	RedisAddr           string `env:"REDIS_ADDR"`

	UltravoxAPIKey  string `env:"ULTRAVOX_API_KEY"`
	UltravoxBaseURL string `env:"ULTRAVOX_BASE_URL" envDefault:"https://api.ultravox.ai"`

	LLMProvider    string `env:"LLM_PROVIDER" envDefault:"groq"`
	GroqAPIKey     string `env:"GROQ_API_KEY"`
	LLMBaseURL     string `env:"LLM_BASE_URL"`
	LLMModel       string `env:"LLM_MODEL"`
	VertexProject  string `env:"VERTEX_PROJECT"`
	VertexLocation string `env:"VERTEX_LOCATION" envDefault:"us-central1"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	AuthHS256Secret   string `env:"AUTH_HS256_SECRET"`

	GCSBucket       string        `env:"GCS_BUCKET"`
	AnalysisTimeout time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"60s"`
	HistoryCacheTTL time.Duration `env:"HISTORY_CACHE_TTL" envDefault:"60s"`
	ArchiveWorkers  int           `env:"ARCHIVE_WORKERS" envDefault:"2"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.MongoURI == "":
		return errors.New("MONGO_URI environment variable is not set")
	case c.PostgresURI == "":
		return errors.New("POSTGRES_URI environment variable is not set")
	case c.RedisAddr == "":
		return errors.New("REDIS_ADDR environment variable is not set")
	case c.FirebaseProjectID == "" && c.AuthHS256Secret == "":
		return errors.New("either FIREBASE_PROJECT_ID or AUTH_HS256_SECRET must be set")
	}
	return nil
}
