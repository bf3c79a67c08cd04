package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseAppliesDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg, err := Parse([]byte("company:\n  name: Acme\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Company.Name != "Acme" {
		t.Errorf("company name = %q, want Acme", cfg.Company.Name)
	}
	if cfg.Store.Sheets.Tasks != "Tasks" {
		t.Errorf("tasks sheet = %q, want Tasks", cfg.Store.Sheets.Tasks)
	}
	if cfg.AI.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("base url = %q", cfg.AI.BaseURL)
	}
	if cfg.Speech.SampleRateHertz != 48000 {
		t.Errorf("sample rate = %d, want 48000", cfg.Speech.SampleRateHertz)
	}
	if cfg.Telegram.Mode != "polling" {
		t.Errorf("mode = %q, want polling", cfg.Telegram.Mode)
	}
}

func TestParseTemperature(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want float32
	}{
		{name: "absent", yaml: "company:\n  name: Acme\n", want: 0.7},
		{name: "ai section without temperature", yaml: "ai:\n  model: x\n", want: 0.7},
		{name: "explicit zero", yaml: "ai:\n  temperature: 0\n", want: 0},
		{name: "explicit value", yaml: "ai:\n  temperature: 0.2\n", want: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.AI.Temperature != tt.want {
				t.Errorf("temperature = %v, want %v", cfg.AI.Temperature, tt.want)
			}
		})
	}
}

func TestParseOverlaysEnvironment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("OPENROUTER_API_KEY", "sk-or")
	t.Setenv("GOOGLE_SHEET_ID", "sheet-1")
	t.Setenv("ADMIN_CHAT_ID", "424242")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret_token-1")

	cfg, err := Parse([]byte("telegram:\n  token: from-yaml\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q, env should win", cfg.Telegram.Token)
	}
	if cfg.AI.APIKey != "sk-or" {
		t.Errorf("api key = %q", cfg.AI.APIKey)
	}
	if cfg.Store.SpreadsheetID != "sheet-1" {
		t.Errorf("spreadsheet id = %q", cfg.Store.SpreadsheetID)
	}
	if cfg.Telegram.AdminChatID != 424242 {
		t.Errorf("admin chat id = %d", cfg.Telegram.AdminChatID)
	}
	if cfg.Telegram.WebhookSecret != "s3cret_token-1" {
		t.Errorf("webhook secret = %q", cfg.Telegram.WebhookSecret)
	}
}

func TestParseRejectsBadAdminChatID(t *testing.T) {
	t.Setenv("ADMIN_CHAT_ID", "not-a-number")

	if _, err := Parse(nil); err == nil {
		t.Fatal("expected error for non-numeric ADMIN_CHAT_ID")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Store.Backend = "memory"
		cfg.AI.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "sheets backend without spreadsheet",
			mutate:  func(c *Config) { c.Store.Backend = "sheets" },
			wantErr: "spreadsheet_id",
		},
		{
			name:    "missing openrouter key",
			mutate:  func(c *Config) { c.AI.APIKey = "" },
			wantErr: "OPENROUTER_API_KEY",
		},
		{
			name:    "gemini fallback without key",
			mutate:  func(c *Config) { c.AI.Fallback = "gemini" },
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "webhook without public url",
			mutate:  func(c *Config) { c.Telegram.Mode = "webhook" },
			wantErr: "PUBLIC_URL",
		},
		{
			name: "webhook valid",
			mutate: func(c *Config) {
				c.Telegram.Mode = "webhook"
				c.Telegram.PublicURL = "https://bot.example.com"
				c.Telegram.WebhookSecret = "abc_DEF-123"
			},
		},
		{
			name: "webhook without secret",
			mutate: func(c *Config) {
				c.Telegram.Mode = "webhook"
				c.Telegram.PublicURL = "https://bot.example.com"
			},
			wantErr: "TELEGRAM_WEBHOOK_SECRET",
		},
		{
			name: "webhook secret with bad characters",
			mutate: func(c *Config) {
				c.Telegram.Mode = "webhook"
				c.Telegram.PublicURL = "https://bot.example.com"
				c.Telegram.WebhookSecret = "not allowed!"
			},
			wantErr: "webhook_secret",
		},
		{
			name: "webhook secret too long",
			mutate: func(c *Config) {
				c.Telegram.Mode = "webhook"
				c.Telegram.PublicURL = "https://bot.example.com"
				c.Telegram.WebhookSecret = strings.Repeat("a", 257)
			},
			wantErr: "256",
		},
		{
			name: "webhook path without leading slash",
			mutate: func(c *Config) {
				c.Telegram.Mode = "webhook"
				c.Telegram.PublicURL = "https://bot.example.com"
				c.Telegram.WebhookSecret = "abc"
				c.Telegram.WebhookPath = "telegram/webhook"
			},
			wantErr: "webhook_path",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.AI.Temperature = 2.5 },
			wantErr: "temperature",
		},
		{
			name:   "zero temperature is valid",
			mutate: func(c *Config) { c.AI.Temperature = 0 },
		},
		{
			name:    "scheduler without admin",
			mutate:  func(c *Config) { c.Features.Scheduler = true },
			wantErr: "ADMIN_CHAT_ID",
		},
		{
			name: "scheduler with bad weekday",
			mutate: func(c *Config) {
				c.Features.Scheduler = true
				c.Telegram.AdminChatID = 1
				c.Schedule.WeeklyDay = "someday"
			},
			wantErr: "weekday",
		},
		{
			name:    "api without auth key",
			mutate:  func(c *Config) { c.API.Enabled = true },
			wantErr: "API_AUTH_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in         string
		hour, min  int
		shouldFail bool
	}{
		{in: "09:00", hour: 9, min: 0},
		{in: "23:59", hour: 23, min: 59},
		{in: " 7:05 ", hour: 7, min: 5},
		{in: "24:00", shouldFail: true},
		{in: "12:60", shouldFail: true},
		{in: "noon", shouldFail: true},
	}

	for _, tt := range tests {
		hour, min, err := ParseClock(tt.in)
		if tt.shouldFail {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || hour != tt.hour || min != tt.min {
			t.Errorf("ParseClock(%q) = %d, %d, %v; want %d, %d", tt.in, hour, min, err, tt.hour, tt.min)
		}
	}
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config file created") {
		t.Fatalf("Load() error = %v, want creation notice", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}
