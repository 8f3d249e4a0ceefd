package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	TargetNewCount    int    `mapstructure:"target_new_count"`
	MaxPagesPerSource int    `mapstructure:"max_pages_per_source"`
	DiscoverSources   string `mapstructure:"discover_sources"`

	ProfileSummary        string `mapstructure:"profile_summary"`
	ProfileFieldOfStudy   string `mapstructure:"profile_field_of_study"`
	ProfileEducationLevel string `mapstructure:"profile_education_level"`
	ProfileInterests      string `mapstructure:"profile_interests"`

	DiscoverIntervalSeconds int64         `mapstructure:"discover_interval_seconds"`
	DiscoverInterval        time.Duration `mapstructure:"-"`

	BrowserEnabled bool `mapstructure:"browser_enabled"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	AnalysisURL            string        `mapstructure:"analysis_url"`
	AnalysisAPIKey         string        `mapstructure:"analysis_api_key" json:"-"`
	AnalysisTimeoutSeconds int64         `mapstructure:"analysis_timeout_seconds"`
	AnalysisDelaySeconds   int64         `mapstructure:"analysis_delay_seconds"`
	AnalysisTimeout        time.Duration `mapstructure:"-"`
	AnalysisDelay          time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "scholarscout")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("target_new_count", 20)
	v.SetDefault("max_pages_per_source", 50)
	v.SetDefault("discover_sources", "") // empty = all enabled sources
	v.SetDefault("profile_summary", "")
	v.SetDefault("profile_field_of_study", "")
	v.SetDefault("profile_education_level", "")
	v.SetDefault("profile_interests", "")
	v.SetDefault("discover_interval_seconds", 0) // 0 = single run
	v.SetDefault("browser_enabled", true)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/scout.db")
	v.SetDefault("analysis_url", "")
	v.SetDefault("analysis_timeout_seconds", 120)
	v.SetDefault("analysis_delay_seconds", 10)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.TargetNewCount <= 0 {
		return nil, fmt.Errorf("invalid target_new_count (must be positive)")
	}
	if cfg.MaxPagesPerSource <= 0 {
		return nil, fmt.Errorf("invalid max_pages_per_source (must be positive)")
	}
	if cfg.DiscoverIntervalSeconds < 0 {
		return nil, fmt.Errorf("invalid discover_interval_seconds (must be zero or positive)")
	}
	cfg.DiscoverInterval = time.Duration(cfg.DiscoverIntervalSeconds) * time.Second

	if cfg.AnalysisTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid analysis_timeout_seconds (must be positive)")
	}
	if cfg.AnalysisDelaySeconds < 0 {
		return nil, fmt.Errorf("invalid analysis_delay_seconds (must be zero or positive)")
	}
	cfg.AnalysisTimeout = time.Duration(cfg.AnalysisTimeoutSeconds) * time.Second
	cfg.AnalysisDelay = time.Duration(cfg.AnalysisDelaySeconds) * time.Second

	return &cfg, nil
}

// SourceIDs returns the configured source filter, empty when all enabled
// sources should run.
func (c *Config) SourceIDs() []string {
	return splitCSV(c.DiscoverSources)
}

// Interests returns the applicant interests list.
func (c *Config) Interests() []string {
	return splitCSV(c.ProfileInterests)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
