package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultJWTExpiresIn   = "24h"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "zapdesk"
	DefaultPGSSLMode      = "disable"
	DefaultGraphBaseURL   = "https://graph.facebook.com/v21.0"
	DefaultModel          = "gpt-4-turbo-preview"
	DefaultRunTimeoutSecs = 60
	DefaultPollIntervalMS = 1000
	DefaultMaxAttempts    = 3
	DefaultTempMaxAgeHrs  = 24
	DefaultHistoryLimit   = 10
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	WhatsApp WhatsAppConfig `toml:"whatsapp"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Dataset  DatasetConfig  `toml:"dataset"`
	Audio    AudioConfig    `toml:"audio"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"gt=0"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Database string `toml:"database" validate:"required"`
	SSLMode  string `toml:"sslmode"`
}

// WhatsAppConfig covers the Cloud API credentials used by the outbound
// sender, the media fetcher, and the webhook verification handshake.
type WhatsAppConfig struct {
	APIToken      string `toml:"api_token"`
	PhoneNumberID string `toml:"phone_number_id"`
	VerifyToken   string `toml:"verify_token"`
	GraphBaseURL  string `toml:"graph_base_url" validate:"required,url"`
}

type OpenAIConfig struct {
	APIKey              string `toml:"api_key"`
	Model               string `toml:"model"`
	BaseURL             string `toml:"base_url"`
	FallbackAssistantID string `toml:"fallback_assistant_id"`
	InstructionsPath    string `toml:"instructions_path"`
	RunTimeoutSeconds   int    `toml:"run_timeout_seconds" validate:"gt=0"`
	PollIntervalMillis  int    `toml:"poll_interval_millis" validate:"gt=0"`
	MaxAttempts         int    `toml:"max_attempts" validate:"gt=0"`
	HistoryLimit        int    `toml:"history_limit" validate:"gt=0"`
}

type DatasetConfig struct {
	CSVPath        string `toml:"csv_path"`
	ReloadSchedule string `toml:"reload_schedule"`
}

type AudioConfig struct {
	TempDir       string `toml:"temp_dir"`
	MaxAgeHours   int    `toml:"max_age_hours" validate:"gt=0"`
	SweepSchedule string `toml:"sweep_schedule"`
}

func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = DefaultPGSSLMode
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode)
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		WhatsApp: WhatsAppConfig{
			GraphBaseURL: DefaultGraphBaseURL,
		},
		OpenAI: OpenAIConfig{
			Model:              DefaultModel,
			RunTimeoutSeconds:  DefaultRunTimeoutSecs,
			PollIntervalMillis: DefaultPollIntervalMS,
			MaxAttempts:        DefaultMaxAttempts,
			HistoryLimit:       DefaultHistoryLimit,
		},
		Dataset: DatasetConfig{
			CSVPath:        "./data/questions_results.csv",
			ReloadSchedule: "@every 1m",
		},
		Audio: AudioConfig{
			TempDir:       os.TempDir(),
			MaxAgeHours:   DefaultTempMaxAgeHrs,
			SweepSchedule: "@hourly",
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate checks structural constraints on the loaded config.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
