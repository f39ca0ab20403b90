package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"teepress/pkg/logger"
)

const (
	configPathEnv       = "TEEPRESS_CONFIG"
	fulfillmentKeyEnv   = "PRINTFUL_API_KEY"
	fulfillmentStoreEnv = "PRINTFUL_STORE_ID"
	storefrontStoreEnv  = "SHOPIFY_STORE"
	storefrontTokenEnv  = "SHOPIFY_ACCESS_TOKEN"
	markupEnv           = "MARKUP_PERCENT"
	imageGenKeyEnv      = "OPENAI_API_KEY"
	hostingBucketEnv    = "S3_BUCKET_NAME"
	hostingRegionEnv    = "S3_REGION"
	notifyTokenEnv      = "TELEGRAM_BOT_TOKEN"
	notifyChatEnv       = "TELEGRAM_CHAT_ID"
)

var warn = logger.New("config")

// Config holds every setting the pipeline needs across its components.
type Config struct {
	Logging     LoggingConfig      `yaml:"logging"`
	Uploads     UploadsConfig      `yaml:"uploads"`
	RateLimit   RateLimitConfig    `yaml:"rateLimit"`
	Retry       RetryConfig        `yaml:"retry"`
	Fulfillment FulfillmentConfig  `yaml:"fulfillment"`
	Storefront  StorefrontConfig   `yaml:"storefront"`
	Hosting     HostingConfig      `yaml:"hosting"`
	ImageGen    ImageGenConfig     `yaml:"imageGen"`
	Notify      NotifyConfig       `yaml:"notify"`
	Collections []CollectionConfig `yaml:"collections"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// UploadsConfig describes the staging directory and the ledger location.
type UploadsConfig struct {
	Dir               string `yaml:"dir"`
	Pattern           string `yaml:"pattern"`
	TrackerPath       string `yaml:"trackerPath"`
	ReportPath        string `yaml:"reportPath"`
	InterDelaySeconds int    `yaml:"interDelaySeconds"`
}

// RateLimitConfig bounds calls to the fulfillment platform.
type RateLimitConfig struct {
	MaxRequests   int `yaml:"maxRequests"`
	WindowSeconds int `yaml:"windowSeconds"`
	MinIntervalMs int `yaml:"minIntervalMs"`
}

// RetryConfig shapes per-request retries on transient failures.
type RetryConfig struct {
	MaxAttempts int `yaml:"maxAttempts"`
	BaseDelayMs int `yaml:"baseDelayMs"`
	MaxDelayMs  int `yaml:"maxDelayMs"`
}

// FulfillmentConfig wires the print platform API and the variant catalog.
type FulfillmentConfig struct {
	BaseURL          string          `yaml:"baseUrl"`
	APIKey           string          `yaml:"apiKey"`
	StoreID          string          `yaml:"storeId"`
	BasePriceCents   int64           `yaml:"basePriceCents"`
	Markup           float64         `yaml:"markup"`
	Variants         []VariantConfig `yaml:"variants"`
	OversizeSuffixes []string        `yaml:"oversizeSuffixes"`
	OversizeUpcharge float64         `yaml:"oversizeUpcharge"`
}

// VariantConfig maps an abstract catalog key like "white_m" to the numeric
// variant id the platform expects.
type VariantConfig struct {
	Key string `yaml:"key"`
	ID  int64  `yaml:"id"`
}

// StorefrontConfig wires the storefront admin API.
type StorefrontConfig struct {
	Store           string `yaml:"store"`
	AccessToken     string `yaml:"accessToken"`
	APIVersion      string `yaml:"apiVersion"`
	Vendor          string `yaml:"vendor"`
	CollectionsPath string `yaml:"collectionsPath"`
}

// HostingConfig wires the S3 bucket used for URL-based uploads.
type HostingConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// ImageGenConfig wires the image generation API.
type ImageGenConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	Size     string `yaml:"size"`
}

// NotifyConfig wires the optional run-summary chat notification.
type NotifyConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// CollectionConfig names a design category and the themes drawn for it.
type CollectionConfig struct {
	Key    string   `yaml:"key"`
	Name   string   `yaml:"name"`
	Themes []string `yaml:"themes"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An empty path falls back to $TEEPRESS_CONFIG. A .env file in
// the working directory is honored before the environment is read.
func Load(path string) Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			warn.Printf("cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				warn.Printf("cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Fulfillment.Variants) == 0 {
		cfg.Fulfillment.Variants = defaultVariants()
	}
	if len(cfg.Collections) == 0 {
		cfg.Collections = defaultCollections()
	}

	return cfg
}

// FulfillmentConfigured reports whether the fulfillment token is present.
func (c Config) FulfillmentConfigured() bool {
	return c.Fulfillment.APIKey != ""
}

// StorefrontConfigured reports whether the storefront credentials are present.
func (c Config) StorefrontConfigured() bool {
	return c.Storefront.Store != "" && c.Storefront.AccessToken != ""
}

// HostingConfigured reports whether S3 hosting can be used.
func (c Config) HostingConfigured() bool {
	return c.Hosting.Bucket != "" && c.Hosting.Region != ""
}

// GenerationConfigured reports whether image generation can be used.
func (c Config) GenerationConfigured() bool {
	return c.ImageGen.APIKey != ""
}

// NotifyConfigured reports whether run summaries can be pushed to chat.
func (c Config) NotifyConfigured() bool {
	return c.Notify.BotToken != "" && c.Notify.ChatID != ""
}

// CollectionByKey finds a configured collection, nil when absent.
func (c Config) CollectionByKey(key string) *CollectionConfig {
	for i := range c.Collections {
		if c.Collections[i].Key == key {
			return &c.Collections[i]
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(fulfillmentKeyEnv); v != "" {
		c.Fulfillment.APIKey = v
	}
	if v := os.Getenv(fulfillmentStoreEnv); v != "" {
		c.Fulfillment.StoreID = v
	}
	if v := os.Getenv(storefrontStoreEnv); v != "" {
		c.Storefront.Store = v
	}
	if v := os.Getenv(storefrontTokenEnv); v != "" {
		c.Storefront.AccessToken = v
	}
	if v := os.Getenv(markupEnv); v != "" {
		if markup, err := strconv.ParseFloat(v, 64); err == nil && markup > 0 {
			c.Fulfillment.Markup = markup
		} else {
			warn.Printf("ignoring invalid %s=%q", markupEnv, v)
		}
	}
	if v := os.Getenv(imageGenKeyEnv); v != "" {
		c.ImageGen.APIKey = v
	}
	if v := os.Getenv(hostingBucketEnv); v != "" {
		c.Hosting.Bucket = v
	}
	if v := os.Getenv(hostingRegionEnv); v != "" {
		c.Hosting.Region = v
	}
	if v := os.Getenv(notifyTokenEnv); v != "" {
		c.Notify.BotToken = v
	}
	if v := os.Getenv(notifyChatEnv); v != "" {
		c.Notify.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Uploads.Dir != "" {
		base.Uploads.Dir = override.Uploads.Dir
	}
	if override.Uploads.Pattern != "" {
		base.Uploads.Pattern = override.Uploads.Pattern
	}
	if override.Uploads.TrackerPath != "" {
		base.Uploads.TrackerPath = override.Uploads.TrackerPath
	}
	if override.Uploads.ReportPath != "" {
		base.Uploads.ReportPath = override.Uploads.ReportPath
	}
	if override.Uploads.InterDelaySeconds > 0 {
		base.Uploads.InterDelaySeconds = override.Uploads.InterDelaySeconds
	}

	if override.RateLimit.MaxRequests > 0 {
		base.RateLimit.MaxRequests = override.RateLimit.MaxRequests
	}
	if override.RateLimit.WindowSeconds > 0 {
		base.RateLimit.WindowSeconds = override.RateLimit.WindowSeconds
	}
	if override.RateLimit.MinIntervalMs > 0 {
		base.RateLimit.MinIntervalMs = override.RateLimit.MinIntervalMs
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.BaseDelayMs > 0 {
		base.Retry.BaseDelayMs = override.Retry.BaseDelayMs
	}
	if override.Retry.MaxDelayMs > 0 {
		base.Retry.MaxDelayMs = override.Retry.MaxDelayMs
	}

	if override.Fulfillment.BaseURL != "" {
		base.Fulfillment.BaseURL = override.Fulfillment.BaseURL
	}
	if override.Fulfillment.APIKey != "" {
		base.Fulfillment.APIKey = override.Fulfillment.APIKey
	}
	if override.Fulfillment.StoreID != "" {
		base.Fulfillment.StoreID = override.Fulfillment.StoreID
	}
	if override.Fulfillment.BasePriceCents > 0 {
		base.Fulfillment.BasePriceCents = override.Fulfillment.BasePriceCents
	}
	if override.Fulfillment.Markup > 0 {
		base.Fulfillment.Markup = override.Fulfillment.Markup
	}
	if len(override.Fulfillment.Variants) > 0 {
		base.Fulfillment.Variants = override.Fulfillment.Variants
	}
	if len(override.Fulfillment.OversizeSuffixes) > 0 {
		base.Fulfillment.OversizeSuffixes = override.Fulfillment.OversizeSuffixes
	}
	if override.Fulfillment.OversizeUpcharge > 0 {
		base.Fulfillment.OversizeUpcharge = override.Fulfillment.OversizeUpcharge
	}

	if override.Storefront.Store != "" {
		base.Storefront.Store = override.Storefront.Store
	}
	if override.Storefront.AccessToken != "" {
		base.Storefront.AccessToken = override.Storefront.AccessToken
	}
	if override.Storefront.APIVersion != "" {
		base.Storefront.APIVersion = override.Storefront.APIVersion
	}
	if override.Storefront.Vendor != "" {
		base.Storefront.Vendor = override.Storefront.Vendor
	}
	if override.Storefront.CollectionsPath != "" {
		base.Storefront.CollectionsPath = override.Storefront.CollectionsPath
	}

	if override.Hosting.Bucket != "" {
		base.Hosting.Bucket = override.Hosting.Bucket
	}
	if override.Hosting.Region != "" {
		base.Hosting.Region = override.Hosting.Region
	}
	if override.Hosting.Prefix != "" {
		base.Hosting.Prefix = override.Hosting.Prefix
	}

	if override.ImageGen.Endpoint != "" {
		base.ImageGen.Endpoint = override.ImageGen.Endpoint
	}
	if override.ImageGen.Model != "" {
		base.ImageGen.Model = override.ImageGen.Model
	}
	if override.ImageGen.APIKey != "" {
		base.ImageGen.APIKey = override.ImageGen.APIKey
	}
	if override.ImageGen.Size != "" {
		base.ImageGen.Size = override.ImageGen.Size
	}

	if override.Notify.BaseURL != "" {
		base.Notify.BaseURL = override.Notify.BaseURL
	}
	if override.Notify.BotToken != "" {
		base.Notify.BotToken = override.Notify.BotToken
	}
	if override.Notify.ChatID != "" {
		base.Notify.ChatID = override.Notify.ChatID
	}

	if len(override.Collections) > 0 {
		base.Collections = override.Collections
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Uploads: UploadsConfig{
			Dir:               "designs",
			Pattern:           "design_*.png",
			TrackerPath:       "upload_tracker.json",
			InterDelaySeconds: 2,
		},
		RateLimit: RateLimitConfig{MaxRequests: 120, WindowSeconds: 60, MinIntervalMs: 500},
		Retry:     RetryConfig{MaxAttempts: 4, BaseDelayMs: 2000, MaxDelayMs: 60000},
		Fulfillment: FulfillmentConfig{
			BaseURL:          "https://api.printful.com",
			BasePriceCents:   1500,
			Markup:           1.4,
			Variants:         defaultVariants(),
			OversizeSuffixes: []string{"2xl", "3xl"},
			OversizeUpcharge: 1.12,
		},
		Storefront: StorefrontConfig{
			APIVersion:      "2024-01",
			Vendor:          "AI Designs",
			CollectionsPath: "collections.json",
		},
		Hosting: HostingConfig{Prefix: "designs"},
		ImageGen: ImageGenConfig{
			Endpoint: "https://api.openai.com/v1/images/generations",
			Model:    "dall-e-3",
			Size:     "1024x1024",
		},
		Notify:      NotifyConfig{BaseURL: "https://api.telegram.org"},
		Collections: defaultCollections(),
	}
}

// defaultVariants is the unisex tee catalog in white, S through 2XL.
func defaultVariants() []VariantConfig {
	return []VariantConfig{
		{Key: "white_s", ID: 4012},
		{Key: "white_m", ID: 4013},
		{Key: "white_l", ID: 4014},
		{Key: "white_xl", ID: 4015},
		{Key: "white_2xl", ID: 4016},
	}
}

// defaultCollections use hyphenated keys so the filename convention's
// underscore split keeps them as one token.
func defaultCollections() []CollectionConfig {
	return []CollectionConfig{
		{Key: "retro-gaming", Name: "Retro Gaming", Themes: []string{
			"8-bit pixel art game controller",
			"Arcade cabinet with neon lights",
			"Game over screen in vintage style",
		}},
		{Key: "nature-inspired", Name: "Nature Vibes", Themes: []string{
			"Mountain landscape at sunset",
			"Ocean waves in Japanese art style",
			"Northern lights aurora design",
		}},
		{Key: "funny-slogans", Name: "Humor & Sarcasm", Themes: []string{
			"Sarcastic coffee lover quote design",
			"Cat with attitude illustration",
			"Dad joke championship winner badge",
		}},
	}
}
