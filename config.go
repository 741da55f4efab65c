package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	LLMModel        string `yaml:"llm_model"`

	PolicyDocsDir string `yaml:"policy_docs_dir"`
	LexiconPath   string `yaml:"lexicon_path"`
	DBPath        string `yaml:"db_path"`

	DefaultStrictness int `yaml:"default_strictness"`
	HistoryLimit      int `yaml:"history_limit"`
	TranscriptLimit   int `yaml:"transcript_limit"`

	MaxRetries            int    `yaml:"max_retries"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	PolicyReloadSchedule  string `yaml:"policy_reload_schedule"`
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func LoadConfig() Config {
	var cfg Config
	// -1 marks max_retries as unset; an explicit 0 keeps retries off.
	cfg.MaxRetries = -1

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.PolicyDocsDir, "POLICY_DOCS_DIR")
	envOverride(&cfg.LexiconPath, "LEXICON_PATH")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideInt(&cfg.DefaultStrictness, "SCORING_STRICTNESS")
	envOverrideInt(&cfg.HistoryLimit, "HISTORY_LIMIT")
	envOverrideInt(&cfg.TranscriptLimit, "TRANSCRIPT_LIMIT")
	envOverrideInt(&cfg.MaxRetries, "MAX_RETRIES")
	envOverrideInt(&cfg.RequestTimeoutSeconds, "REQUEST_TIMEOUT_SECONDS")
	envOverride(&cfg.PolicyReloadSchedule, "POLICY_RELOAD_SCHEDULE")

	// Defaults
	if cfg.PolicyDocsDir == "" {
		cfg.PolicyDocsDir = "./compliance_docs"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./compliancebot.db"
	}
	if cfg.DefaultStrictness == 0 {
		cfg.DefaultStrictness = 5
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.TranscriptLimit == 0 {
		cfg.TranscriptLimit = 20
	}
	if cfg.MaxRetries == -1 {
		cfg.MaxRetries = 2
	}
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = 60
	}

	// Validate required fields
	if cfg.AnthropicAPIKey == "" {
		log.Fatalf("Required config 'anthropic_api_key' is not set (via config.yaml or env var)")
	}
	if cfg.DefaultStrictness < minStrictness || cfg.DefaultStrictness > maxStrictness {
		log.Fatalf("invalid default_strictness '%d': must be between %d and %d", cfg.DefaultStrictness, minStrictness, maxStrictness)
	}
	if cfg.HistoryLimit < 1 {
		log.Fatalf("invalid history_limit '%d': must be >= 1", cfg.HistoryLimit)
	}
	if cfg.TranscriptLimit < 2 {
		log.Fatalf("invalid transcript_limit '%d': must be >= 2", cfg.TranscriptLimit)
	}
	if cfg.MaxRetries < 0 || cfg.MaxRetries > 5 {
		log.Fatalf("invalid max_retries '%d': must be between 0 and 5", cfg.MaxRetries)
	}
	if cfg.RequestTimeoutSeconds < 1 {
		log.Fatalf("invalid request_timeout_seconds '%d': must be >= 1", cfg.RequestTimeoutSeconds)
	}
	if cfg.LexiconPath != "" {
		if _, err := LoadComplianceLexicon(cfg.LexiconPath); err != nil {
			log.Fatalf("invalid lexicon_path '%s': %v", cfg.LexiconPath, err)
		}
	}
	if schedule := strings.TrimSpace(cfg.PolicyReloadSchedule); schedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(schedule); err != nil {
			log.Fatalf("invalid policy_reload_schedule '%s': %v", schedule, err)
		}
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
