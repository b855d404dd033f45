package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all tabscribe environment variables.
const EnvPrefix = "TABSCRIBE_"

// Config holds all service configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr            string `yaml:"listen_addr"`
	DBPath                string `yaml:"db_path"`
	ExportDir             string `yaml:"export_dir"`
	AutoTranscribe        bool   `yaml:"auto_transcribe"`
	PollInterval          string `yaml:"poll_interval"`
	MaxPolls              int    `yaml:"max_polls"`
	GenerationProvider    string `yaml:"generation_provider"`
	GenerationModel       string `yaml:"generation_model"`
	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets: env vars only, never serialized to YAML.
	AssemblyAIKey string `yaml:"-"`
	GenerationKey string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:            "127.0.0.1:8574",
		DBPath:                "data/tabscribe.db",
		ExportDir:             "data/meetings",
		PollInterval:          "3s",
		MaxPolls:              0,
		GenerationProvider:    "gemini",
		GenerationModel:       "gemini-2.0-flash",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// Credentials exposes the two opaque service keys to the orchestrator.
func (c *Config) Credentials() (speechKey, generativeKey string) {
	return c.AssemblyAIKey, c.GenerationKey
}

// ParsedPollInterval returns PollInterval as a time.Duration, falling back
// to 3s if the value is invalid.
func (c *Config) ParsedPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}
	if v := os.Getenv(EnvPrefix + "AUTO_TRANSCRIBE"); v != "" {
		cfg.AutoTranscribe = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv(EnvPrefix + "POLL_INTERVAL"); v != "" {
		cfg.PollInterval = v
	}
	if v := os.Getenv(EnvPrefix + "MAX_POLLS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			cfg.MaxPolls = n
		}
	}
	if v := os.Getenv(EnvPrefix + "GENERATION_PROVIDER"); v != "" {
		cfg.GenerationProvider = v
	}
	if v := os.Getenv(EnvPrefix + "GENERATION_MODEL"); v != "" {
		cfg.GenerationModel = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.AssemblyAIKey = os.Getenv(EnvPrefix + "ASSEMBLYAI_API_KEY")
	cfg.GenerationKey = os.Getenv(EnvPrefix + "GENERATION_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.AssemblyAIKey == "" {
		warnings = append(warnings, "AssemblyAI API key not configured; recording cannot start. Set "+EnvPrefix+"ASSEMBLYAI_API_KEY.")
	}
	if cfg.GenerationKey == "" {
		warnings = append(warnings, "Generation API key not configured; recording cannot start. Set "+EnvPrefix+"GENERATION_API_KEY.")
	}
	if _, err := time.ParseDuration(cfg.PollInterval); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid poll_interval %q; using default 3s.", cfg.PollInterval))
	}
	switch cfg.GenerationProvider {
	case "gemini", "openai", "anthropic":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown generation_provider %q; supported: gemini, openai, anthropic.", cfg.GenerationProvider))
	}

	return warnings
}
