// Package config loads and validates application configuration from YAML files
// with .env and environment-variable overrides. It provides typed structs for
// every subsystem (Server, Index, Search, PageRank, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	PageRank  PageRankConfig  `yaml:"pagerank"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// AllowOrigins lists the browser origins allowed to call the API. Empty
	// disables CORS headers; "*" allows any origin.
	AllowOrigins []string `yaml:"allowOrigins"`
	// RateLimit is the per-client request budget per minute. 0 disables it.
	RateLimit int `yaml:"rateLimit"`
}

// IndexConfig locates the crawler inputs and the flat index files. Every file
// name is resolved relative to DataDir unless it is absolute.
type IndexConfig struct {
	DataDir        string `yaml:"dataDir"`
	CollectionFile string `yaml:"collectionFile"`
	LinksFile      string `yaml:"linksFile"`
	StopwordsFile  string `yaml:"stopwordsFile"`
	DictionaryFile string `yaml:"dictionaryFile"`
	PostingsFile   string `yaml:"postingsFile"`
	MetaFile       string `yaml:"metaFile"`
	TitlesFile     string `yaml:"titlesFile"`
	URLsFile       string `yaml:"urlsFile"`
	PageRankFile   string `yaml:"pagerankFile"`
}

// Path resolves name against DataDir.
func (c IndexConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) || c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// SearchConfig controls ranking weights, result limits and the query cache.
type SearchConfig struct {
	CosineWeight   float64       `yaml:"cosineWeight"`
	PageRankWeight float64       `yaml:"pagerankWeight"`
	MaxResults     int           `yaml:"maxResults"`
	Precision      int           `yaml:"precision"`
	CacheEnabled   bool          `yaml:"cacheEnabled"`
	Timeout        time.Duration `yaml:"timeout"`
}

// PageRankConfig controls the power iteration.
type PageRankConfig struct {
	Damping    float64 `yaml:"damping"`
	Iterations int     `yaml:"iterations"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete   string `yaml:"indexComplete"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
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

// AnalyticsConfig controls the search analytics pipeline.
type AnalyticsConfig struct {
	BufferSize        int           `yaml:"bufferSize"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval"`
	// SnapshotRetention bounds how long persisted snapshots are kept; 0
	// keeps them all.
	SnapshotRetention time.Duration `yaml:"snapshotRetention"`
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

// Load reads a YAML config file (if provided), a .env file in the working
// directory (if present) and applies environment-variable overrides. It
// returns a validated Config populated with defaults for any missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Index: IndexConfig{
			DataDir:        "data",
			CollectionFile: "web_collection.all",
			LinksFile:      "page_links.json",
			StopwordsFile:  "stopwords.txt",
			DictionaryFile: "dictionary.txt",
			PostingsFile:   "postings.txt",
			MetaFile:       "meta.json",
			TitlesFile:     "titles.txt",
			URLsFile:       "urls.txt",
			PageRankFile:   "pagerank.json",
		},
		Search: SearchConfig{
			CosineWeight:   0.7,
			PageRankWeight: 0.3,
			MaxResults:     20,
			Precision:      4,
			CacheEnabled:   true,
			Timeout:        5 * time.Second,
		},
		PageRank: PageRankConfig{
			Damping:    0.85,
			Iterations: 20,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "webrank-group",
			Topics: KafkaTopics{
				IndexComplete:   "index.complete",
				AnalyticsEvents: "search-analytics",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "webrank",
			User:            "webrank",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:        10000,
			SnapshotInterval:  time.Minute,
			SnapshotRetention: 7 * 24 * time.Hour,
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

// Validate rejects values the ranking and PageRank code cannot work with.
func (c *Config) Validate() error {
	if c.Search.CosineWeight < 0 || c.Search.PageRankWeight < 0 {
		return fmt.Errorf("invalid config: search weights must be non-negative (cosine=%v, pagerank=%v)",
			c.Search.CosineWeight, c.Search.PageRankWeight)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid config: server.rateLimit must be non-negative, got %d", c.Server.RateLimit)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("invalid config: search.maxResults must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.Precision < 0 {
		return fmt.Errorf("invalid config: search.precision must be non-negative, got %d", c.Search.Precision)
	}
	if c.PageRank.Damping < 0 || c.PageRank.Damping > 1 {
		return fmt.Errorf("invalid config: pagerank.damping must be within [0,1], got %v", c.PageRank.Damping)
	}
	if c.PageRank.Iterations < 0 {
		return fmt.Errorf("invalid config: pagerank.iterations must be non-negative, got %d", c.PageRank.Iterations)
	}
	return nil
}

// applyEnvOverrides reads WR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WR_SERVER_ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("WR_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("WR_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("WR_INDEX_STOPWORDS_FILE"); v != "" {
		cfg.Index.StopwordsFile = v
	}
	if v := os.Getenv("WR_SEARCH_COSINE_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.CosineWeight = w
		}
	}
	if v := os.Getenv("WR_SEARCH_PAGERANK_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.PageRankWeight = w
		}
	}
	if v := os.Getenv("WR_SEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxResults = n
		}
	}
	if v := os.Getenv("WR_SEARCH_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.CacheEnabled = b
		}
	}
	if v := os.Getenv("WR_PAGERANK_DAMPING"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PageRank.Damping = d
		}
	}
	if v := os.Getenv("WR_PAGERANK_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageRank.Iterations = n
		}
	}
	if v := os.Getenv("WR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WR_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("WR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WR_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("WR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
