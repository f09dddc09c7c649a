package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Scraper    ScraperConfig    `mapstructure:"scraper"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	Enhancer   EnhancerConfig   `mapstructure:"enhancer"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	Environment    string   `mapstructure:"environment" validate:"oneof=development production test"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	MaxUploadMB    int      `mapstructure:"max_upload_mb" validate:"min=1"`
}

// ScraperConfig holds outbound HTTP settings for store scraping
type ScraperConfig struct {
	Timeout             time.Duration `mapstructure:"timeout" validate:"min=1s"`
	UserAgent           string        `mapstructure:"user_agent"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	MaxRetries          int           `mapstructure:"max_retries" validate:"min=1"`
	FeedPageSize        int           `mapstructure:"feed_page_size" validate:"min=1,max=250"`
	FeedMaxPages        int           `mapstructure:"feed_max_pages" validate:"min=1"`
	MaxImagesPerProduct int           `mapstructure:"max_images_per_product" validate:"min=1,max=5"`
}

// ExtractionConfig holds the tunable heuristics of the PDF and web extractors
type ExtractionConfig struct {
	PDFStrategy         string   `mapstructure:"pdf_strategy" validate:"oneof=length sku"`
	SKUPatterns         []string `mapstructure:"sku_patterns"`
	MinLineLength       int      `mapstructure:"min_line_length" validate:"min=1"`
	PDFMinTitle         int      `mapstructure:"pdf_min_title" validate:"min=1"`
	PDFMaxTitle         int      `mapstructure:"pdf_max_title" validate:"gtfield=PDFMinTitle"`
	WebMinTitle         int      `mapstructure:"web_min_title" validate:"min=1"`
	WebMaxTitle         int      `mapstructure:"web_max_title" validate:"gtfield=WebMinTitle"`
	AggressiveMinTitle  int      `mapstructure:"aggressive_min_title" validate:"min=1"`
	AggressiveMaxTitle  int      `mapstructure:"aggressive_max_title" validate:"gtfield=AggressiveMinTitle"`
	AggressiveMaxImages int      `mapstructure:"aggressive_max_images" validate:"min=1"`
	MinParentText       int      `mapstructure:"min_parent_text" validate:"min=0"`
	MaxSelectorMatches  int      `mapstructure:"max_selector_matches" validate:"min=1"`
}

// CloudinaryConfig holds image hosting configuration. Hosting is disabled without credentials.
type CloudinaryConfig struct {
	CloudName      string        `mapstructure:"cloud_name"`
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	Folder         string        `mapstructure:"folder" validate:"required"`
	Size           int           `mapstructure:"size" validate:"min=1"`
	Quality        string        `mapstructure:"quality" validate:"required"`
	Format         string        `mapstructure:"format" validate:"oneof=webp jpg png avif"`
	UploadInterval time.Duration `mapstructure:"upload_interval" validate:"min=0"`
}

// Enabled reports whether all Cloudinary credentials are set
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// EnhancerConfig holds AI text enhancement configuration
type EnhancerConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=none gemini openai anthropic"`
	APIKey      string        `mapstructure:"api_key" validate:"required_unless=Provider none"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Interval    time.Duration `mapstructure:"interval" validate:"min=0"`
	Concurrency int           `mapstructure:"concurrency" validate:"min=1"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip" validate:"min=1"` // requests per minute
}

// legacyEnv maps config keys to the environment names used by earlier deployments
var legacyEnv = map[string]string{
	"server.port":            "PORT",
	"server.allowed_origins": "FRONTEND_URL",
	"cloudinary.cloud_name":  "CLOUDINARY_CLOUD_NAME",
	"cloudinary.api_key":     "CLOUDINARY_API_KEY",
	"cloudinary.api_secret":  "CLOUDINARY_API_SECRET",
	"enhancer.api_key":       "GEMINI_API_KEY",
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ecometri/")

	// Environment variable settings
	v.SetEnvPrefix("ECOMETRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		prefixed := "ECOMETRI_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// A bare GEMINI_API_KEY implies the Gemini provider
	if config.Enhancer.Provider == "" {
		config.Enhancer.Provider = "none"
		if config.Enhancer.APIKey != "" {
			config.Enhancer.Provider = "gemini"
		}
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.max_upload_mb", 50)

	// Scraper defaults
	v.SetDefault("scraper.timeout", "30s")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; EcometriCatalogBot/1.0)")
	v.SetDefault("scraper.requests_per_second", 5)
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.feed_page_size", 250)
	v.SetDefault("scraper.feed_max_pages", 10)
	v.SetDefault("scraper.max_images_per_product", 5)

	// Extraction defaults
	v.SetDefault("extraction.pdf_strategy", "length")
	v.SetDefault("extraction.sku_patterns", []string{})
	v.SetDefault("extraction.min_line_length", 10)
	v.SetDefault("extraction.pdf_min_title", 15)
	v.SetDefault("extraction.pdf_max_title", 200)
	v.SetDefault("extraction.web_min_title", 4)
	v.SetDefault("extraction.web_max_title", 200)
	v.SetDefault("extraction.aggressive_min_title", 6)
	v.SetDefault("extraction.aggressive_max_title", 199)
	v.SetDefault("extraction.aggressive_max_images", 200)
	v.SetDefault("extraction.min_parent_text", 10)
	v.SetDefault("extraction.max_selector_matches", 200)

	// Cloudinary defaults
	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.folder", "ecometri")
	v.SetDefault("cloudinary.size", 1080)
	v.SetDefault("cloudinary.quality", "auto:good")
	v.SetDefault("cloudinary.format", "webp")
	v.SetDefault("cloudinary.upload_interval", "500ms")

	// Enhancer defaults
	v.SetDefault("enhancer.provider", "")
	v.SetDefault("enhancer.api_key", "")
	v.SetDefault("enhancer.model", "")
	v.SetDefault("enhancer.base_url", "")
	v.SetDefault("enhancer.temperature", 0.7)
	v.SetDefault("enhancer.interval", "1s")
	v.SetDefault("enhancer.concurrency", 1)
	v.SetDefault("enhancer.timeout", "30s")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	if config.Server.Environment == "production" && len(config.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin is required in production")
	}

	return nil
}

// loadEnvFile loads ./.env if present. Variables already set in the environment win.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}
