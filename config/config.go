package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	API       APIConfig       `mapstructure:"api"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Affiliate AffiliateConfig `mapstructure:"affiliate"`
	Output    OutputConfig    `mapstructure:"output"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Environment string `mapstructure:"environment" validate:"oneof=development production test"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=auto json pretty"`
}

// APIConfig holds the structured product API configuration
type APIConfig struct {
	Key               string        `mapstructure:"key"`
	Host              string        `mapstructure:"host" validate:"required"`
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	Domain            string        `mapstructure:"domain" validate:"required"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=1,lte=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=1"`
}

// SourcesConfig holds settings for the trend feed and the marketplace scraper
type SourcesConfig struct {
	TrendFeedURL   string        `mapstructure:"trend_feed_url"`
	MarketplaceURL string        `mapstructure:"marketplace_url" validate:"required,url"`
	SkipScraping   bool          `mapstructure:"skip_scraping"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxResults     int           `mapstructure:"max_results" validate:"gte=1"`
}

// PipelineConfig holds the gather, rank and enrich thresholds
type PipelineConfig struct {
	MinGatherFloor int                 `mapstructure:"min_gather_floor" validate:"gte=0"`
	MinRating      float64             `mapstructure:"min_rating" validate:"gte=0,lte=5"`
	TopN           int                 `mapstructure:"top_n" validate:"gte=1"`
	EnrichExtra    int                 `mapstructure:"enrich_extra" validate:"gte=0"`
	EnrichDelay    time.Duration       `mapstructure:"enrich_delay" validate:"gte=0"`
	NicheDelay     time.Duration       `mapstructure:"niche_delay" validate:"gte=0"`
	PremiumBrands  []string            `mapstructure:"premium_brands"`
	NicheBrands    map[string][]string `mapstructure:"niche_brands"`
}

// AffiliateConfig holds purchase link settings
type AffiliateConfig struct {
	Tag            string `mapstructure:"tag"`
	ProductBaseURL string `mapstructure:"product_base_url" validate:"required,url"`
}

// OutputConfig holds input and output file locations
type OutputConfig struct {
	SnapshotDir string `mapstructure:"snapshot_dir" validate:"required"`
	NichesFile  string `mapstructure:"niches_file" validate:"required"`
}

// CacheConfig holds detail cache configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "badger"
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds snapshot API server configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DefaultPremiumBrands is the brand allowlist for the premium ranking boost
var DefaultPremiumBrands = []string{
	"Apple", "Sony", "Bose", "Sennheiser", "Bang & Olufsen", "Shure",
	"Razer", "Logitech", "Samsung", "JBL", "Beats",
}

// Load loads the configuration for a pipeline run. The product API key is required.
func Load() (*Config, error) {
	return load(true)
}

// LoadServer loads the configuration for the snapshot API. The server only
// reads snapshot files, so the product API key may be absent.
func LoadServer() (*Config, error) {
	return load(false)
}

func load(requireAPIKey bool) (*Config, error) {
	v := viper.New()

	v.SetConfigName("nichegen")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/nichegen/")

	v.SetEnvPrefix("NICHEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := mergeEnvFile(v, ".env"); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config, requireAPIKey); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	// Structured product API
	v.SetDefault("api.host", "amazon-real-time-api.p.rapidapi.com")
	v.SetDefault("api.base_url", "https://amazon-real-time-api.p.rapidapi.com")
	v.SetDefault("api.domain", "US")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_delay", "2s")
	v.SetDefault("api.requests_per_second", 2.0)
	v.SetDefault("api.burst", 1)

	v.SetDefault("sources.trend_feed_url", "")
	v.SetDefault("sources.marketplace_url", "https://www.amazon.com")
	v.SetDefault("sources.skip_scraping", false)
	v.SetDefault("sources.timeout", "30s")
	v.SetDefault("sources.max_results", 20)

	v.SetDefault("pipeline.min_gather_floor", 8)
	v.SetDefault("pipeline.min_rating", 3.5)
	v.SetDefault("pipeline.top_n", 10)
	v.SetDefault("pipeline.enrich_extra", 2)
	v.SetDefault("pipeline.enrich_delay", "500ms")
	v.SetDefault("pipeline.niche_delay", "3s")
	v.SetDefault("pipeline.premium_brands", DefaultPremiumBrands)

	v.SetDefault("affiliate.tag", "")
	v.SetDefault("affiliate.product_base_url", "https://www.amazon.com/dp/")

	v.SetDefault("output.snapshot_dir", "data/snapshots")
	v.SetDefault("output.niches_file", "niches.csv")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.path", "data/cache")
	v.SetDefault("cache.ttl", "720h") // 30 days

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
}

// envAliases are the unprefixed variable names used by existing deployments
var envAliases = map[string]string{
	"api.key":               "RAPIDAPI_KEY",
	"affiliate.tag":         "AFFILIATE_TAG",
	"sources.skip_scraping": "SKIP_SCRAPING",
}

// bindEnv binds each aliased key to its prefixed and unprefixed variable
func bindEnv(v *viper.Viper) {
	for key, alias := range envAliases {
		_ = v.BindEnv(key, envName(key), alias)
	}
}

func envName(key string) string {
	return "NICHEGEN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// mergeEnvFile merges a dotenv file into the config layer. Real environment
// variables keep precedence because viper consults them before config values.
// A missing file is not an error.
func mergeEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return err
	}

	keys := make(map[string]string)
	for _, key := range v.AllKeys() {
		keys[strings.ToLower(envName(key))] = key
	}
	for key, alias := range envAliases {
		keys[strings.ToLower(alias)] = key
	}

	merged := make(map[string]any)
	for _, name := range dotenv.AllKeys() {
		key, ok := keys[name]
		if !ok {
			continue
		}
		setPath(merged, strings.Split(key, "."), dotenv.GetString(name))
	}
	if len(merged) == 0 {
		return nil
	}
	return v.MergeConfigMap(merged)
}

func setPath(m map[string]any, path []string, value string) {
	for _, part := range path[:len(path)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// validate validates the configuration
func validate(config *Config, requireAPIKey bool) error {
	if requireAPIKey && strings.TrimSpace(config.API.Key) == "" {
		return fmt.Errorf("API key is required (set NICHEGEN_API_KEY or RAPIDAPI_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "badger" {
		return fmt.Errorf("cache type must be 'memory' or 'badger', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "badger" && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache type is 'badger'")
	}

	if err := validator.New().Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s failed '%s' check (value: %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	return nil
}
