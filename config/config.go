package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Portal    PortalConfig
	Search    SearchConfig
	Crawl     CrawlConfig
	Storage   StorageConfig
	Media     MediaConfig
	Scheduler SchedulerConfig
	LogPath   string
}

type PortalConfig struct {
	BaseURL   string
	Domain    string
	UserAgent string
	// Channel tag for the listing API fallback.
	Channel string
}

// SearchConfig is the filter set a crawl is built from. Loaded from a yaml
// profile when SEARCH_CONFIG points at one, env otherwise. An explicit
// StartURL overrides filter-based URL construction entirely.
type SearchConfig struct {
	Location      string   `yaml:"location"`
	RadiusMiles   float64  `yaml:"radius_miles"`
	MinPrice      int      `yaml:"min_price"`
	MaxPrice      int      `yaml:"max_price"`
	MinBedrooms   int      `yaml:"min_bedrooms"`
	MaxBedrooms   int      `yaml:"max_bedrooms"`
	PropertyTypes []string `yaml:"property_types"`
	StartURL      string   `yaml:"start_url"`
}

type CrawlConfig struct {
	CollectDetails bool
	MaxResults     int
	MaxPages       int
	Concurrency    int
	DelayMS        int
	DelayJitterMS  int
	MaxRetries     int
	BatchSize      int
}

type StorageConfig struct {
	DBPath      string // SQLite sink
	PostgresURL string // optional secondary sink
}

type MediaConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Portal: PortalConfig{
			BaseURL:   getEnv("PORTAL_BASE_URL", "https://www.example-homes.co.uk"),
			Domain:    getEnv("PORTAL_DOMAIN", "www.example-homes.co.uk"),
			UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
			Channel:   getEnv("PORTAL_CHANNEL", "RES_BUY"),
		},
		Crawl: CrawlConfig{
			CollectDetails: getEnv("COLLECT_DETAILS", "true") == "true",
			MaxResults:     getEnvInt("MAX_RESULTS", 500),
			MaxPages:       getEnvInt("MAX_PAGES", 20),
			Concurrency:    getEnvInt("CONCURRENCY", 3),
			DelayMS:        getEnvInt("DELAY_MS", 1500),
			DelayJitterMS:  getEnvInt("DELAY_JITTER_MS", 1000),
			MaxRetries:     getEnvInt("MAX_RETRIES", 3),
			BatchSize:      getEnvInt("BATCH_SIZE", 25),
		},
		Storage: StorageConfig{
			DBPath:      getEnv("DB_PATH", "listings.db"),
			PostgresURL: os.Getenv("POSTGRES_URL"),
		},
		Media: MediaConfig{
			Enabled:         os.Getenv("MEDIA_MIRROR") == "true",
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "eu-west-2"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		LogPath: getEnv("LOG_PATH", "scraper.log"),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSearch(); err != nil {
		return nil, err
	}

	if cfg.Crawl.Concurrency < 1 {
		cfg.Crawl.Concurrency = 1
	}
	if cfg.Crawl.BatchSize < 1 {
		cfg.Crawl.BatchSize = 1
	}

	return cfg, nil
}

func (c *Config) loadSearch() error {
	path := getEnv("SEARCH_CONFIG", "config/search.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.searchFromEnv()
			return nil
		}
		return fmt.Errorf("read search config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.Search); err != nil {
		return fmt.Errorf("parse search config %s: %w", path, err)
	}
	return nil
}

func (c *Config) searchFromEnv() {
	c.Search = SearchConfig{
		Location:    os.Getenv("SEARCH_LOCATION"),
		RadiusMiles: getEnvFloat("SEARCH_RADIUS_MILES", 0),
		MinPrice:    getEnvInt("SEARCH_MIN_PRICE", 0),
		MaxPrice:    getEnvInt("SEARCH_MAX_PRICE", 0),
		MinBedrooms: getEnvInt("SEARCH_MIN_BEDROOMS", 0),
		MaxBedrooms: getEnvInt("SEARCH_MAX_BEDROOMS", 0),
		StartURL:    os.Getenv("SEARCH_START_URL"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
