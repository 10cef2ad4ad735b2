package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Remote transcription endpoint (OpenAI-compatible).
	WhisperURL     string        `env:"WHISPER_URL" envDefault:"https://api.openai.com/v1/audio/transcriptions"`
	WhisperModel   string        `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	WhisperAPIKey  string        `env:"WHISPER_API_KEY"`
	WhisperTimeout time.Duration `env:"WHISPER_TIMEOUT" envDefault:"5m"`

	// Pipeline tuning.
	SizeThresholdBytes int64   `env:"SIZE_THRESHOLD_BYTES" envDefault:"26214400"` // 25 MiB
	MinChunkBytes      int     `env:"MIN_CHUNK_BYTES" envDefault:"1000"`
	PipelineWorkers    int     `env:"PIPELINE_WORKERS" envDefault:"1"`
	Language           string  `env:"LANGUAGE"`
	Temperature        float64 `env:"TEMPERATURE" envDefault:"0"`

	// HTTP server.
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	AuthToken    string        `env:"AUTH_TOKEN"`

	// Optional subsystems: each is enabled only when its connection
	// setting is non-empty.
	DatabaseURL     string `env:"DATABASE_URL"`
	MQTTBrokerURL   string `env:"MQTT_BROKER_URL"`
	MQTTClientID    string `env:"MQTT_CLIENT_ID" envDefault:"scribed"`
	MQTTTopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"scribed"`
	MQTTUsername    string `env:"MQTT_USERNAME"`
	MQTTPassword    string `env:"MQTT_PASSWORD"`
	WatchDir        string `env:"WATCH_DIR"`

	// Audio archive.
	AudioDir       string `env:"AUDIO_DIR" envDefault:"./audio"`
	ArchiveUploads bool   `env:"ARCHIVE_UPLOADS" envDefault:"false"`
	S3             S3Config

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// S3Config configures the optional S3 audio archive backend.
type S3Config struct {
	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"S3_BUCKET"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Prefix    string `env:"S3_PREFIX"`
}

// Enabled reports whether S3 storage is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	WatchDir string
	APIKey   string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.WatchDir != "" {
		cfg.WatchDir = overrides.WatchDir
	}
	if overrides.APIKey != "" {
		cfg.WhisperAPIKey = overrides.APIKey
	}

	return cfg, nil
}

// Validate checks settings the service cannot run without.
func (c *Config) Validate() error {
	if c.WhisperAPIKey == "" {
		return fmt.Errorf("missing credential: WHISPER_API_KEY is required")
	}
	if c.SizeThresholdBytes <= 0 {
		return fmt.Errorf("SIZE_THRESHOLD_BYTES must be positive, got %d", c.SizeThresholdBytes)
	}
	if c.PipelineWorkers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be >= 1, got %d", c.PipelineWorkers)
	}
	return nil
}
