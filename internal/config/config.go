package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Upstream struct {
		AccountURL     string `yaml:"account_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"upstream"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Security struct {
		EncryptionKey string `yaml:"encryption_key"`
	} `yaml:"security"`
	Schedule struct {
		BatchCron          string  `yaml:"batch_cron"`
		ChangingRecheckMin float64 `yaml:"changing_recheck_minutes"`
		StableRecheckMin   float64 `yaml:"stable_recheck_minutes"`
		ChangeWindowMin    float64 `yaml:"change_window_minutes"`
		BurnWindowMin      float64 `yaml:"burn_window_minutes"`
		CheckThrottleMs    int     `yaml:"check_throttle_ms"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("UPSTREAM_ACCOUNT_URL"); v != "" {
		cfg.Upstream.AccountURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		cfg.Security.EncryptionKey = v
	}
	if v := os.Getenv("BATCH_CRON"); v != "" {
		cfg.Schedule.BatchCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Upstream.TimeoutSeconds = n
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Upstream.AccountURL == "" {
		c.Upstream.AccountURL = "https://api.siliconflow.cn/v1/user/info"
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 30
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/balance_sentinel.db"
	}
	if c.Schedule.BatchCron == "" {
		// Every minute; the adaptive due predicate keeps actual call volume low.
		c.Schedule.BatchCron = "0 * * * * *"
	}
	if c.Schedule.ChangingRecheckMin == 0 {
		c.Schedule.ChangingRecheckMin = 1
	}
	if c.Schedule.StableRecheckMin == 0 {
		c.Schedule.StableRecheckMin = 5
	}
	if c.Schedule.ChangeWindowMin == 0 {
		c.Schedule.ChangeWindowMin = 6
	}
	if c.Schedule.BurnWindowMin == 0 {
		c.Schedule.BurnWindowMin = 30
	}
	if c.Schedule.CheckThrottleMs == 0 {
		c.Schedule.CheckThrottleMs = 500
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("security.encryption_key is required")
	}
	if len(c.Security.EncryptionKey) < 16 {
		return fmt.Errorf("security.encryption_key must be at least 16 characters")
	}
	if c.Upstream.AccountURL == "" {
		return fmt.Errorf("upstream.account_url is required")
	}
	if c.Schedule.ChangingRecheckMin > c.Schedule.StableRecheckMin {
		return fmt.Errorf("schedule.changing_recheck_minutes must not exceed stable_recheck_minutes")
	}
	return nil
}
