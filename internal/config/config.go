package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Timezone   string           `yaml:"timezone"`
	Topics     []string         `yaml:"topics"`
	Articles   ArticlesConfig   `yaml:"articles"`
	Search     SearchConfig     `yaml:"search"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Retry      RetryConfig      `yaml:"retry"`
	Server     ServerConfig     `yaml:"server"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Log        LogConfig        `yaml:"log"`
}

// ArticlesConfig bounds the per-topic headline cap a user may choose.
type ArticlesConfig struct {
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
	Default int `yaml:"default"`
}

type SearchConfig struct {
	Backend      string        `yaml:"backend"`
	DefaultQuery string        `yaml:"default_query"`
	Region       string        `yaml:"region"`
	SafeSearch   string        `yaml:"safesearch"`
	MaxPages     int           `yaml:"max_pages"`
	Timeout      time.Duration `yaml:"timeout"`
	BaseURL      string        `yaml:"base_url"`
	Locale       LocaleConfig  `yaml:"locale"`
}

// LocaleConfig holds the Google News edition parameters.
type LocaleConfig struct {
	HL   string `yaml:"hl"`
	GL   string `yaml:"gl"`
	CEID string `yaml:"ceid"`
}

type SummarizerConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	BaseURL   string        `yaml:"base_url"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ScheduleConfig drives the optional pre-generated brief served by "serve".
type ScheduleConfig struct {
	Cron       string        `yaml:"cron"`
	RunOnStart bool          `yaml:"run_on_start"`
	APIKey     string        `yaml:"api_key"`
	Topics     []string      `yaml:"topics"`
	OutputDir  string        `yaml:"output_dir"`
	Discord    DiscordConfig `yaml:"discord"`
	Email      EmailConfig   `yaml:"email"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultTopics is the topic vocabulary offered when none is configured.
var DefaultTopics = []string{
	"World", "Politics", "Technology", "Science",
	"Health", "Business", "Entertainment", "Sports",
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = slices.Clone(DefaultTopics)
	}
	if cfg.Articles.Min == 0 {
		cfg.Articles.Min = 3
	}
	if cfg.Articles.Max == 0 {
		cfg.Articles.Max = 15
	}
	if cfg.Articles.Default == 0 {
		cfg.Articles.Default = 7
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = "duckduckgo"
	}
	if cfg.Search.DefaultQuery == "" {
		cfg.Search.DefaultQuery = "daily news"
	}
	if cfg.Search.Region == "" {
		cfg.Search.Region = "wt-wt"
	}
	if cfg.Search.SafeSearch == "" {
		cfg.Search.SafeSearch = "moderate"
	}
	if cfg.Search.MaxPages == 0 {
		cfg.Search.MaxPages = 3
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 30 * time.Second
	}
	if cfg.Search.Locale.HL == "" {
		cfg.Search.Locale.HL = "en-US"
	}
	if cfg.Search.Locale.GL == "" {
		cfg.Search.Locale.GL = "US"
	}
	if cfg.Search.Locale.CEID == "" {
		cfg.Search.Locale.CEID = "US:en"
	}
	if cfg.Summarizer.Provider == "" {
		cfg.Summarizer.Provider = "openai"
	}
	if cfg.Summarizer.Model == "" {
		switch cfg.Summarizer.Provider {
		case "anthropic":
			cfg.Summarizer.Model = "claude-haiku-4-5"
		default:
			cfg.Summarizer.Model = "gpt-4o-mini"
		}
	}
	if cfg.Summarizer.MaxTokens == 0 {
		cfg.Summarizer.MaxTokens = 600
	}
	if cfg.Summarizer.Timeout == 0 {
		cfg.Summarizer.Timeout = 120 * time.Second
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = 1 * time.Second
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:8080"}
	}
	if cfg.Schedule.Email.SMTPPort == 0 {
		cfg.Schedule.Email.SMTPPort = 587
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func validate(cfg *Config) error {
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Articles.Min < 1 {
		return fmt.Errorf("config: articles.min must be at least 1, got %d", cfg.Articles.Min)
	}
	if cfg.Articles.Max < cfg.Articles.Min {
		return fmt.Errorf("config: articles.max (%d) is below articles.min (%d)", cfg.Articles.Max, cfg.Articles.Min)
	}
	if cfg.Articles.Default < cfg.Articles.Min || cfg.Articles.Default > cfg.Articles.Max {
		return fmt.Errorf("config: articles.default (%d) must be within [%d, %d]", cfg.Articles.Default, cfg.Articles.Min, cfg.Articles.Max)
	}
	seen := make(map[string]bool, len(cfg.Topics))
	for _, t := range cfg.Topics {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("config: topics must not contain empty labels")
		}
		if seen[t] {
			return fmt.Errorf("config: duplicate topic %q", t)
		}
		seen[t] = true
	}
	switch cfg.Search.Backend {
	case "duckduckgo", "googlenews":
	default:
		return fmt.Errorf("config: unsupported search backend %q (supported: duckduckgo, googlenews)", cfg.Search.Backend)
	}
	switch cfg.Search.SafeSearch {
	case "strict", "moderate", "off":
	default:
		return fmt.Errorf("config: unsupported safesearch %q (supported: strict, moderate, off)", cfg.Search.SafeSearch)
	}
	if cfg.Search.MaxPages < 1 {
		return fmt.Errorf("config: search.max_pages must be at least 1, got %d", cfg.Search.MaxPages)
	}
	switch cfg.Summarizer.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unsupported summarizer provider %q (supported: openai, anthropic)", cfg.Summarizer.Provider)
	}
	if cfg.Summarizer.MaxTokens < 1 {
		return fmt.Errorf("config: summarizer.max_tokens must be positive, got %d", cfg.Summarizer.MaxTokens)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("config: retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	for _, t := range cfg.Schedule.Topics {
		if !seen[t] {
			return fmt.Errorf("config: schedule topic %q is not in topics", t)
		}
	}
	if cfg.Schedule.Email.SMTPHost != "" {
		if len(cfg.Schedule.Email.To) == 0 {
			return fmt.Errorf("config: schedule.email.to is required when smtp_host is set")
		}
		if cfg.Schedule.Email.From == "" {
			return fmt.Errorf("config: schedule.email.from is required when smtp_host is set")
		}
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config: unsupported log format %q (supported: json, text)", cfg.Log.Format)
	}
	return nil
}

// Location returns the time zone used to decide what "today" means.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ScheduleEnabled reports whether a cron expression was configured.
func (c *Config) ScheduleEnabled() bool {
	return strings.TrimSpace(c.Schedule.Cron) != ""
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
