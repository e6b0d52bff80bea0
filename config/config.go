package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"chart_interpreter/interpreter"
)

// Config is read from a JSON file; every key can be overridden with an
// INTERPRETER_ prefixed environment variable (dots become underscores).
type Config struct {
	LLM        LLMConfig           `mapstructure:"llm"`
	ServerAddr string              `mapstructure:"server_addr"`
	History    HistoryConfig       `mapstructure:"history"`
	Persona    interpreter.Persona `mapstructure:"persona"`
	Export     ExportConfig        `mapstructure:"export"`
	Log        LogConfig           `mapstructure:"log"`
	RateLimit  RateLimitConfig     `mapstructure:"rate_limit"`
}

type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	ThinkingBudget int32  `mapstructure:"thinking_budget"`
}

type HistoryConfig struct {
	// Backend is "sqlite" or "memory".
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	MaxBytes int    `mapstructure:"max_bytes"`
}

type ExportConfig struct {
	PDFFont     string `mapstructure:"pdf_font"`
	PDFBoldFont string `mapstructure:"pdf_bold_font"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-3-pro-preview")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.thinking_budget", interpreter.DefaultThinkingBudget)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.path", "data/history.db")
	v.SetDefault("history.max_bytes", 5<<20)
	v.SetDefault("persona.role", interpreter.DefaultPersona.Role)
	v.SetDefault("persona.systems", interpreter.DefaultPersona.Systems)
	v.SetDefault("persona.tone", interpreter.DefaultPersona.Tone)
	v.SetDefault("export.pdf_font", "")
	v.SetDefault("export.pdf_bold_font", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("rate_limit.per_minute", 10)
	v.SetDefault("rate_limit.burst", 3)
}

// Load reads path (a missing file is not an error) and applies env overrides.
// The API key also falls back to API_KEY / GEMINI_API_KEY.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("INTERPRETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", "INTERPRETER_LLM_API_KEY", "API_KEY", "GEMINI_API_KEY"); err != nil {
		return Config{}, err
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
