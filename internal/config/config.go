// Package config loads service configuration: defaults, an optional
// YAML settings file, then environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider types for the AI backend.
const (
	ProviderOllama       = "ollama"
	ProviderNativeOllama = "native-ollama"
)

// NativeOllamaURL is forced when the provider is native-ollama.
const NativeOllamaURL = "http://localhost:11434"

// AISettings selects and authenticates the language-model backend.
// Any provider other than ollama/native-ollama is treated as an
// OpenAI-compatible chat-completion endpoint.
type AISettings struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
}

// CaptureSettings configures the screen-capture service client.
type CaptureSettings struct {
	URL         string `yaml:"url"`
	ContentType string `yaml:"content_type"`
	QueryLimit  int    `yaml:"query_limit"`
	// ProcessName is matched against running processes by the health probe.
	ProcessName string `yaml:"process_name"`
}

// FocusSettings configures the monitoring loop.
type FocusSettings struct {
	DefaultTask    string        `yaml:"default_task"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	NotifyInterval time.Duration `yaml:"notify_interval"`
	// SummarizeEvery hands the poll batch to the summarizer every Nth poll.
	SummarizeEvery int `yaml:"summarize_every"`
}

// NotifySettings configures optional alert channels.
type NotifySettings struct {
	DiscordToken     string `yaml:"discord_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// Config is the full service configuration.
type Config struct {
	ListenAddr string          `yaml:"listen_addr"`
	DataDir    string          `yaml:"data_dir"`
	LogFile    string          `yaml:"log_file"`
	Capture    CaptureSettings `yaml:"capture"`
	Focus      FocusSettings   `yaml:"focus"`
	AI         AISettings      `yaml:"ai"`
	Notify     NotifySettings  `yaml:"notify"`
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := filepath.Join(os.TempDir(), "focusfade")
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".focusfade")
	}

	return Config{
		ListenAddr: ":8090",
		DataDir:    dataDir,
		LogFile:    filepath.Join(dataDir, "logs.json"),
		Capture: CaptureSettings{
			URL:         "http://localhost:3030",
			ContentType: "ocr",
			QueryLimit:  50,
			ProcessName: "screenpipe",
		},
		Focus: FocusSettings{
			DefaultTask:    "coding",
			PollInterval:   5 * time.Second,
			NotifyInterval: 2 * time.Minute,
			SummarizeEvery: 10,
		},
		AI: AISettings{
			Provider: ProviderOllama,
			Model:    "llama3",
			URL:      "http://localhost:11434",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path
// (skipped when path is empty or absent), and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.AI.Provider == ProviderNativeOllama {
		cfg.AI.URL = NativeOllamaURL
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "logs.json")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "FOCUSFADE_LISTEN_ADDR")
	setString(&cfg.DataDir, "FOCUSFADE_DATA_DIR")
	setString(&cfg.LogFile, "FOCUSFADE_LOG_FILE")
	setString(&cfg.Capture.URL, "FOCUSFADE_CAPTURE_URL")
	setString(&cfg.Capture.ContentType, "FOCUSFADE_CAPTURE_CONTENT_TYPE")
	setInt(&cfg.Capture.QueryLimit, "FOCUSFADE_CAPTURE_QUERY_LIMIT")
	setString(&cfg.Focus.DefaultTask, "FOCUSFADE_FOCUS_TASK")
	setDuration(&cfg.Focus.PollInterval, "FOCUSFADE_POLL_INTERVAL")
	setDuration(&cfg.Focus.NotifyInterval, "FOCUSFADE_NOTIFY_INTERVAL")
	setInt(&cfg.Focus.SummarizeEvery, "FOCUSFADE_SUMMARIZE_EVERY")
	setString(&cfg.AI.Provider, "FOCUSFADE_AI_PROVIDER")
	setString(&cfg.AI.Model, "FOCUSFADE_AI_MODEL")
	setString(&cfg.AI.URL, "FOCUSFADE_AI_URL")
	setString(&cfg.AI.APIKey, "FOCUSFADE_AI_API_KEY")
	setString(&cfg.Notify.DiscordToken, "FOCUSFADE_DISCORD_TOKEN")
	setString(&cfg.Notify.DiscordChannelID, "FOCUSFADE_DISCORD_CHANNEL_ID")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
