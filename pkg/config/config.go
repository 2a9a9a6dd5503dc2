// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Redis, Kafka, Blob, Embedding, Ingest,
// Retrieval, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Blob      BlobConfig      `yaml:"blob"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the retriever service.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters. Redis backs the job queue,
// the delayed-retry set, the dead-letter list, and the job status store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// KafkaConfig holds Kafka broker and topic settings for job lifecycle events.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	JobEventsTopic string   `yaml:"jobEventsTopic"`
}

// BlobConfig holds the S3-compatible object storage settings used to fetch
// raw uploaded bytes. Endpoint may point at Cloudflare R2 or MinIO.
type BlobConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	Bucket          string        `yaml:"bucket"`
	UsePathStyle    bool          `yaml:"usePathStyle"`
	DownloadTimeout time.Duration `yaml:"downloadTimeout"`
}

// EmbeddingConfig holds the embedding service endpoint and model settings.
type EmbeddingConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	Dimension   int           `yaml:"dimension"`
	APIKeyEnv   string        `yaml:"apiKeyEnv"`
	CallTimeout time.Duration `yaml:"callTimeout"`
}

// IngestConfig controls the chunker, the worker loop, and the retry policy.
type IngestConfig struct {
	ChunkSize        int           `yaml:"chunkSize"`
	ChunkOverlap     int           `yaml:"chunkOverlap"`
	MaxAttempts      int           `yaml:"maxAttempts"`
	BaseDelay        time.Duration `yaml:"baseDelay"`
	BackoffFactor    float64       `yaml:"backoffFactor"`
	MaxDelay         time.Duration `yaml:"maxDelay"`
	PopTimeout       time.Duration `yaml:"popTimeout"`
	PromoteInterval  time.Duration `yaml:"promoteInterval"`
	PromoteBatch     int           `yaml:"promoteBatch"`
	LeaseTTL         time.Duration `yaml:"leaseTTL"`
	EmbedConcurrency int           `yaml:"embedConcurrency"`
}

// RetrievalConfig controls the retrieval engine.
type RetrievalConfig struct {
	TopK           int `yaml:"topK"`
	MaxQuestionLen int `yaml:"maxQuestionLen"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development. The retry defaults reproduce the 2s/4s/8s/16s capped backoff
// sequence.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "botbuilder",
			User:            "botbuilder",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Enabled:        false,
			Brokers:        []string{"localhost:9092"},
			JobEventsTopic: "ingestion-job-events",
		},
		Blob: BlobConfig{
			Region:          "auto",
			Bucket:          "botbuilder-uploads",
			UsePathStyle:    false,
			DownloadTimeout: 30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "nomic-embed-text",
			Dimension:   768,
			APIKeyEnv:   "BB_EMBEDDING_API_KEY",
			CallTimeout: 15 * time.Second,
		},
		Ingest: IngestConfig{
			ChunkSize:        500,
			ChunkOverlap:     50,
			MaxAttempts:      5,
			BaseDelay:        2 * time.Second,
			BackoffFactor:    2,
			MaxDelay:         60 * time.Second,
			PopTimeout:       10 * time.Second,
			PromoteInterval:  time.Second,
			PromoteBatch:     10,
			LeaseTTL:         60 * time.Second,
			EmbedConcurrency: 1,
		},
		Retrieval: RetrievalConfig{
			TopK:           5,
			MaxQuestionLen: 8192,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// validate rejects configurations that would break the pipeline invariants.
func validate(cfg *Config) error {
	if cfg.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunkSize must be positive, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap < 0 || cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunkOverlap must be in [0, chunkSize), got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Ingest.MaxAttempts <= 0 {
		return fmt.Errorf("ingest.maxAttempts must be positive, got %d", cfg.Ingest.MaxAttempts)
	}
	if cfg.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", cfg.Embedding.Dimension)
	}
	return nil
}

// applyEnvOverrides reads BB_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BB_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BB_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("BB_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("BB_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("BB_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("BB_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("BB_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("BB_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BB_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BB_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("BB_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("BB_BLOB_ENDPOINT"); v != "" {
		cfg.Blob.Endpoint = v
	}
	if v := os.Getenv("BB_BLOB_REGION"); v != "" {
		cfg.Blob.Region = v
	}
	if v := os.Getenv("BB_BLOB_BUCKET"); v != "" {
		cfg.Blob.Bucket = v
	}
	if v := os.Getenv("BB_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("BB_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("BB_EMBEDDING_DIMENSION"); v != "" {
		if dim, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = dim
		}
	}
	if v := os.Getenv("BB_INGEST_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.ChunkSize = n
		}
	}
	if v := os.Getenv("BB_INGEST_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.ChunkOverlap = n
		}
	}
	if v := os.Getenv("BB_INGEST_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.MaxAttempts = n
		}
	}
	if v := os.Getenv("BB_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BB_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("BB_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
