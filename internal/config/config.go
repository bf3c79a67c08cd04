package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram Telegram `yaml:"telegram"`
	AI       AI       `yaml:"ai"`
	Gemini   Gemini   `yaml:"gemini"`
	Speech   Speech   `yaml:"speech"`
	Store    Store    `yaml:"store"`
	Company  Company  `yaml:"company"`
	Schedule Schedule `yaml:"schedule"`
	Features Features `yaml:"features"`
	API      API      `yaml:"api"`
	TUI      TUI      `yaml:"tui"`
	Pending  Pending  `yaml:"pending"`
}

type Telegram struct {
	Token         string `yaml:"token"`
	Mode          string `yaml:"mode"`           // "polling" or "webhook"
	PublicURL     string `yaml:"public_url"`     // Required for webhook mode
	WebhookPath   string `yaml:"webhook_path"`   // Must start with "/"
	WebhookSecret string `yaml:"webhook_secret"` // Required for webhook mode
	AdminChatID   int64  `yaml:"admin_chat_id"`
	Debug         bool   `yaml:"debug"`
}

type AI struct {
	Provider           string  `yaml:"provider"` // "openrouter" or "gemini"
	Fallback           string  `yaml:"fallback"` // Optional secondary provider
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	Temperature        float32 `yaml:"temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
	RateLimitPerMinute int     `yaml:"rate_limit_per_minute"`
	MaxRetries         int     `yaml:"max_retries"`
	BaseRetryDelay     int     `yaml:"base_retry_delay_seconds"`
}

type Gemini struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type Speech struct {
	LanguageCode    string `yaml:"language_code"`
	Encoding        string `yaml:"encoding"`
	SampleRateHertz int64  `yaml:"sample_rate_hertz"`
}

type Store struct {
	Backend         string `yaml:"backend"` // "sheets", "sqlite" or "memory"
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
	SQLitePath      string `yaml:"sqlite_path"`
	Sheets          struct {
		Tasks    string `yaml:"tasks"`
		Profile  string `yaml:"profile"`
		Strategy string `yaml:"strategy"`
		Log      string `yaml:"log"`
	} `yaml:"sheets"`
}

type Company struct {
	Name         string `yaml:"name"`
	DefaultOwner string `yaml:"default_owner"`
}

type Schedule struct {
	DailyReportTime string `yaml:"daily_report_time"` // "09:00"
	WeeklyDay       string `yaml:"weekly_day"`        // "monday"
	WeeklyTime      string `yaml:"weekly_time"`       // "10:00"
	Timezone        string `yaml:"timezone"`          // "Europe/Moscow"
}

type Features struct {
	Voice           bool `yaml:"voice"`
	Scheduler       bool `yaml:"scheduler"`
	Strategy        bool `yaml:"strategy"`
	ConversationLog bool `yaml:"conversation_log"`
}

type API struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	AuthKey string `yaml:"auth_key"`
}

type TUI struct {
	AutoRefreshSeconds int `yaml:"auto_refresh_seconds"`
}

type Pending struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// Load reads the YAML config at path, overlays credentials from the
// environment (and a .env file next to the working directory), applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	// godotenv never overrides variables that are already set
	_ = godotenv.Load()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefaultConfig(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return nil, fmt.Errorf("config file created at %s - please update it with your settings", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML, overlays the environment and applies defaults without
// validating. Commands that need only part of the config call it directly.
func Parse(data []byte) (*Config, error) {
	// Seeded before decoding so an explicit "temperature: 0" survives
	config := Config{AI: AI{Temperature: defaultTemperature}}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}
	applyDefaults(&config)

	return &config, nil
}

func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// applyEnv overlays environment-provided credentials and identifiers.
func applyEnv(cfg *Config) error {
	setString(&cfg.Telegram.Token, "BOT_TOKEN")
	setString(&cfg.Telegram.PublicURL, "PUBLIC_URL")
	setString(&cfg.Telegram.WebhookSecret, "TELEGRAM_WEBHOOK_SECRET")
	setString(&cfg.AI.APIKey, "OPENROUTER_API_KEY")
	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Store.SpreadsheetID, "GOOGLE_SHEET_ID")
	setString(&cfg.Store.CredentialsFile, "GOOGLE_SERVICE_ACCOUNT_JSON_PATH")
	setString(&cfg.API.AuthKey, "API_AUTH_KEY")

	if v := strings.TrimSpace(os.Getenv("ADMIN_CHAT_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ADMIN_CHAT_ID must be a number: %w", err)
		}
		cfg.Telegram.AdminChatID = id
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT must be a number: %w", err)
		}
		cfg.API.Port = port
	}

	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

const defaultTemperature = 0.7

func applyDefaults(cfg *Config) {
	// Telegram defaults
	if cfg.Telegram.Mode == "" {
		cfg.Telegram.Mode = "polling"
	}
	if cfg.Telegram.WebhookPath == "" {
		cfg.Telegram.WebhookPath = "/telegram/webhook"
	}

	// AI defaults
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openrouter"
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "deepseek/deepseek-chat"
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 2000
	}
	if cfg.AI.RateLimitPerMinute == 0 {
		cfg.AI.RateLimitPerMinute = 20
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 2
	}
	if cfg.AI.BaseRetryDelay == 0 {
		cfg.AI.BaseRetryDelay = 2
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}

	// Speech defaults match Telegram voice notes (Opus in OGG at 48 kHz)
	if cfg.Speech.LanguageCode == "" {
		cfg.Speech.LanguageCode = "ru-RU"
	}
	if cfg.Speech.Encoding == "" {
		cfg.Speech.Encoding = "OGG_OPUS"
	}
	if cfg.Speech.SampleRateHertz == 0 {
		cfg.Speech.SampleRateHertz = 48000
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sheets"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = os.ExpandEnv("$HOME/.ceo-agent/data.db")
	}
	if cfg.Store.Sheets.Tasks == "" {
		cfg.Store.Sheets.Tasks = "Tasks"
	}
	if cfg.Store.Sheets.Profile == "" {
		cfg.Store.Sheets.Profile = "CompanyProfile"
	}
	if cfg.Store.Sheets.Strategy == "" {
		cfg.Store.Sheets.Strategy = "StrategyPlan"
	}
	if cfg.Store.Sheets.Log == "" {
		cfg.Store.Sheets.Log = "Log"
	}

	// Company defaults
	if cfg.Company.Name == "" {
		cfg.Company.Name = "CEO"
	}
	if cfg.Company.DefaultOwner == "" {
		cfg.Company.DefaultOwner = "User"
	}

	// Schedule defaults
	if cfg.Schedule.DailyReportTime == "" {
		cfg.Schedule.DailyReportTime = "09:00"
	}
	if cfg.Schedule.WeeklyDay == "" {
		cfg.Schedule.WeeklyDay = "monday"
	}
	if cfg.Schedule.WeeklyTime == "" {
		cfg.Schedule.WeeklyTime = "10:00"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Europe/Moscow"
	}

	// API defaults
	if cfg.API.Port == 0 {
		cfg.API.Port = 3000
	}

	// TUI defaults
	if cfg.TUI.AutoRefreshSeconds == 0 {
		cfg.TUI.AutoRefreshSeconds = 30
	}

	if cfg.Pending.TTLMinutes == 0 {
		cfg.Pending.TTLMinutes = 15
	}
}

func validate(cfg *Config) error {
	switch cfg.Telegram.Mode {
	case "polling":
	case "webhook":
		if cfg.Telegram.PublicURL == "" {
			return fmt.Errorf("telegram.public_url (PUBLIC_URL) is required in webhook mode")
		}
		if !strings.HasPrefix(cfg.Telegram.WebhookPath, "/") {
			return fmt.Errorf("telegram.webhook_path must start with /, got %q", cfg.Telegram.WebhookPath)
		}
		if err := validateWebhookSecret(cfg.Telegram.WebhookSecret); err != nil {
			return err
		}
	default:
		return fmt.Errorf("telegram.mode must be polling or webhook, got %q", cfg.Telegram.Mode)
	}

	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got %v", cfg.AI.Temperature)
	}

	switch cfg.Store.Backend {
	case "sheets":
		if cfg.Store.SpreadsheetID == "" {
			return fmt.Errorf("store.spreadsheet_id (GOOGLE_SHEET_ID) is required")
		}
		if cfg.Store.CredentialsFile == "" {
			return fmt.Errorf("store.credentials_file (GOOGLE_SERVICE_ACCOUNT_JSON_PATH) is required")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.backend must be sheets, sqlite or memory, got %q", cfg.Store.Backend)
	}

	for _, provider := range []string{cfg.AI.Provider, cfg.AI.Fallback} {
		switch provider {
		case "":
		case "openrouter":
			if cfg.AI.APIKey == "" {
				return fmt.Errorf("ai.api_key (OPENROUTER_API_KEY) is required")
			}
		case "gemini":
			if cfg.Gemini.APIKey == "" {
				return fmt.Errorf("gemini.api_key (GEMINI_API_KEY) is required")
			}
		default:
			return fmt.Errorf("unknown ai provider %q", provider)
		}
	}

	if cfg.Features.Voice && cfg.Store.CredentialsFile == "" {
		return fmt.Errorf("features.voice needs store.credentials_file for the speech API")
	}

	if cfg.Features.Scheduler {
		if cfg.Telegram.AdminChatID == 0 {
			return fmt.Errorf("telegram.admin_chat_id (ADMIN_CHAT_ID) is required when the scheduler is enabled")
		}
		for _, t := range []string{cfg.Schedule.DailyReportTime, cfg.Schedule.WeeklyTime} {
			if _, _, err := ParseClock(t); err != nil {
				return err
			}
		}
		if _, err := ParseWeekday(cfg.Schedule.WeeklyDay); err != nil {
			return err
		}
	}

	if cfg.API.Enabled && cfg.API.AuthKey == "" {
		return fmt.Errorf("api.auth_key (API_AUTH_KEY) is required when the API is enabled")
	}

	return nil
}

// validateWebhookSecret applies Telegram's secret_token rules: 1-256
// characters from A-Z, a-z, 0-9, "_" and "-".
func validateWebhookSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("telegram.webhook_secret (TELEGRAM_WEBHOOK_SECRET) is required in webhook mode")
	}
	if len(secret) > 256 {
		return fmt.Errorf("telegram.webhook_secret is longer than 256 characters")
	}
	for _, r := range secret {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("telegram.webhook_secret may only contain A-Z, a-z, 0-9, _ and -")
		}
	}
	return nil
}

// RequireBot checks the settings only the long-running bot needs.
func (c *Config) RequireBot() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token (BOT_TOKEN) is required")
	}
	return nil
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

var weekdays = map[string]int{
	"sunday": 0, "sun": 0,
	"monday": 1, "mon": 1,
	"tuesday": 2, "tue": 2,
	"wednesday": 3, "wed": 3,
	"thursday": 4, "thu": 4,
	"friday": 5, "fri": 5,
	"saturday": 6, "sat": 6,
}

// ParseWeekday returns the cron day-of-week number for a weekday name.
func ParseWeekday(s string) (int, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return day, nil
}

func createDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	exampleConfig := `# CEO Agent Configuration
#
# Secrets are read from the environment (or a .env file):
#   BOT_TOKEN, OPENROUTER_API_KEY, GEMINI_API_KEY, GOOGLE_SHEET_ID,
#   GOOGLE_SERVICE_ACCOUNT_JSON_PATH, ADMIN_CHAT_ID, PUBLIC_URL,
#   TELEGRAM_WEBHOOK_SECRET, API_AUTH_KEY

telegram:
  mode: polling            # or webhook (needs PUBLIC_URL and TELEGRAM_WEBHOOK_SECRET)
  webhook_path: /telegram/webhook

ai:
  provider: openrouter
  model: deepseek/deepseek-chat
  temperature: 0.7
  max_tokens: 2000
  rate_limit_per_minute: 20
  max_retries: 2

speech:
  language_code: ru-RU
  encoding: OGG_OPUS
  sample_rate_hertz: 48000

store:
  backend: sheets          # sheets, sqlite or memory
  sheets:
    tasks: Tasks
    profile: CompanyProfile
    strategy: StrategyPlan
    log: Log

company:
  name: CEO

schedule:
  daily_report_time: "09:00"
  weekly_day: monday
  weekly_time: "10:00"
  timezone: Europe/Moscow

features:
  voice: true
  scheduler: true
  strategy: true
  conversation_log: false

api:
  enabled: true
  port: 3000
`

	if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
