package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "FEEDPUB_CONFIG"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	cacheDirEnv       = "FEEDPUB_CACHE_DIR"
	outputDirEnv      = "FEEDPUB_OUTPUT_DIR"
	logLevelEnv       = "FEEDPUB_LOG_LEVEL"
)

// Summarization providers.
const (
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
	ProviderNone   = "none"
)

// Cache backends.
const (
	CacheFS     = "fs"
	CacheSQLite = "sqlite"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	ML         MLConfig         `yaml:"ml"`
	Cache      CacheConfig      `yaml:"cache"`
	Output     OutputConfig     `yaml:"output"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CatalogConfig names the feed list: an OPML file or inline feeds.
type CatalogConfig struct {
	Path  string       `yaml:"path"`
	Title string       `yaml:"title"`
	Feeds []FeedConfig `yaml:"feeds"`
}

// FeedConfig is one inline feed entry.
type FeedConfig struct {
	Category    string `yaml:"category"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	HTMLURL     string `yaml:"htmlUrl"`
}

// IngestConfig bounds what is read from each feed.
type IngestConfig struct {
	MaxArticles int           `yaml:"maxArticles"`
	CutoffDays  float64       `yaml:"cutoffDays"`
	UserAgent   string        `yaml:"userAgent"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SummarizerConfig is the content budget and retry policy.
type SummarizerConfig struct {
	Provider             string        `yaml:"provider"`
	MinChars             int           `yaml:"minChars"`
	MaxTokens            int           `yaml:"maxTokens"`
	CharsPerToken        int           `yaml:"charsPerToken"`
	PromptOverheadTokens int           `yaml:"promptOverheadTokens"`
	TargetChars          int           `yaml:"targetChars"`
	MaxAttempts          int           `yaml:"maxAttempts"`
	Backoff              time.Duration `yaml:"backoff"`
	Throttle             time.Duration `yaml:"throttle"`
}

// OpenAIConfig defines how to contact the OpenAI API.
type OpenAIConfig struct {
	BaseURL      string `yaml:"baseUrl"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// MLConfig describes a self-hosted inference service.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// CacheConfig selects where summaries persist between runs.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// OutputConfig controls the generated e-book.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Author   string `yaml:"author"`
	Language string `yaml:"language"`
}

// DeliveryConfig encapsulates outbound channels.
type DeliveryConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send documents.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SchedulerConfig defines how often the schedule command runs.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads YAML configuration and applies environment overrides. An
// explicit path that cannot be read is an error; a path taken from
// FEEDPUB_CONFIG falls back to defaults.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(configPathEnv)
	}

	if path != "" {
		fileCfg, err := readFile(path)
		switch {
		case err != nil && explicit:
			return Config{}, err
		case err != nil:
			log.Printf("config: %v (falling back to defaults)", err)
		default:
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg, nil
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

// Validate reports settings that would make a run fail later.
func (c Config) Validate() error {
	var errs []error

	if c.Catalog.Path == "" && len(c.Catalog.Feeds) == 0 {
		errs = append(errs, errors.New("catalog: set path to an OPML file or list feeds"))
	}
	for i, f := range c.Catalog.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			errs = append(errs, fmt.Errorf("catalog.feeds[%d]: url is required", i))
		}
	}

	if c.Ingest.MaxArticles <= 0 {
		errs = append(errs, errors.New("ingest.maxArticles must be positive"))
	}
	if c.Ingest.CutoffDays <= 0 {
		errs = append(errs, errors.New("ingest.cutoffDays must be positive"))
	}

	switch c.Summarizer.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, fmt.Errorf("openai.apiKey is required (or set %s)", openAIAPIKeyEnv))
		}
	case ProviderHTTP:
		if c.ML.InferenceURL == "" {
			errs = append(errs, errors.New("ml.inferenceUrl is required for the http provider"))
		}
	case ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("summarizer.provider %q is not one of openai, http, none", c.Summarizer.Provider))
	}
	if c.Summarizer.MaxAttempts <= 0 {
		errs = append(errs, errors.New("summarizer.maxAttempts must be positive"))
	}
	if c.Summarizer.MaxTokens <= c.Summarizer.PromptOverheadTokens {
		errs = append(errs, errors.New("summarizer.maxTokens must exceed promptOverheadTokens"))
	}

	switch c.Cache.Backend {
	case CacheFS, CacheSQLite:
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of fs, sqlite", c.Cache.Backend))
	}
	if c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required"))
	}

	if (c.Delivery.Telegram.BotToken == "") != (c.Delivery.Telegram.ChatID == "") {
		errs = append(errs, errors.New("delivery.telegram needs both botToken and chatId"))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Delivery.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Delivery.Telegram.ChatID = v
	}

	if v := os.Getenv(cacheDirEnv); v != "" {
		c.Cache.Dir = v
	}

	if v := os.Getenv(outputDirEnv); v != "" {
		c.Output.Dir = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Catalog.Path != "" {
		base.Catalog.Path = override.Catalog.Path
	}
	if override.Catalog.Title != "" {
		base.Catalog.Title = override.Catalog.Title
	}
	if len(override.Catalog.Feeds) > 0 {
		base.Catalog.Feeds = override.Catalog.Feeds
		// Inline feeds replace the default OPML path unless the file names one.
		if override.Catalog.Path == "" {
			base.Catalog.Path = ""
		}
	}

	if override.Ingest.MaxArticles > 0 {
		base.Ingest.MaxArticles = override.Ingest.MaxArticles
	}
	if override.Ingest.CutoffDays > 0 {
		base.Ingest.CutoffDays = override.Ingest.CutoffDays
	}
	if override.Ingest.UserAgent != "" {
		base.Ingest.UserAgent = override.Ingest.UserAgent
	}
	if override.Ingest.Timeout > 0 {
		base.Ingest.Timeout = override.Ingest.Timeout
	}

	s, o := &base.Summarizer, override.Summarizer
	if o.Provider != "" {
		s.Provider = o.Provider
	}
	if o.MinChars > 0 {
		s.MinChars = o.MinChars
	}
	if o.MaxTokens > 0 {
		s.MaxTokens = o.MaxTokens
	}
	if o.CharsPerToken > 0 {
		s.CharsPerToken = o.CharsPerToken
	}
	if o.PromptOverheadTokens > 0 {
		s.PromptOverheadTokens = o.PromptOverheadTokens
	}
	if o.TargetChars > 0 {
		s.TargetChars = o.TargetChars
	}
	if o.MaxAttempts > 0 {
		s.MaxAttempts = o.MaxAttempts
	}
	if o.Backoff > 0 {
		s.Backoff = o.Backoff
	}
	if o.Throttle > 0 {
		s.Throttle = o.Throttle
	}

	if override.OpenAI.BaseURL != "" {
		base.OpenAI.BaseURL = override.OpenAI.BaseURL
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}

	if override.ML.InferenceURL != "" {
		base.ML.InferenceURL = override.ML.InferenceURL
	}
	if override.ML.APIKey != "" {
		base.ML.APIKey = override.ML.APIKey
	}

	if override.Cache.Backend != "" {
		base.Cache.Backend = override.Cache.Backend
	}
	if override.Cache.Dir != "" {
		base.Cache.Dir = override.Cache.Dir
	}

	if override.Output.Dir != "" {
		base.Output.Dir = override.Output.Dir
	}
	if override.Output.Author != "" {
		base.Output.Author = override.Output.Author
	}
	if override.Output.Language != "" {
		base.Output.Language = override.Output.Language
	}

	if override.Delivery.Telegram.BotToken != "" {
		base.Delivery.Telegram.BotToken = override.Delivery.Telegram.BotToken
	}
	if override.Delivery.Telegram.ChatID != "" {
		base.Delivery.Telegram.ChatID = override.Delivery.Telegram.ChatID
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Catalog: CatalogConfig{Path: "feeds.opml", Title: "FeedPub"},
		Ingest: IngestConfig{
			MaxArticles: 25,
			CutoffDays:  1,
			UserAgent:   "FeedPub/1.0",
			Timeout:     20 * time.Second,
		},
		Summarizer: SummarizerConfig{
			Provider:             ProviderOpenAI,
			MinChars:             1000,
			MaxTokens:            16385,
			CharsPerToken:        4,
			PromptOverheadTokens: 4000,
			TargetChars:          2000,
			MaxAttempts:          3,
			Backoff:              time.Second,
			Throttle:             time.Second,
		},
		OpenAI: OpenAIConfig{
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a helpful assistant.",
		},
		Cache:     CacheConfig{Backend: CacheFS, Dir: "cache"},
		Output:    OutputConfig{Dir: ".", Author: "FeedPub", Language: "en"},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
	}
}
