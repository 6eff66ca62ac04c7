package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string   `mapstructure:"PORT"`
	Env                   string   `mapstructure:"ENV"`
	FHIRBaseURL           string   `mapstructure:"FHIR_BASE_URL"`
	FHIRAuth              string   `mapstructure:"FHIR_AUTH"`
	FHIRTimeoutSeconds    int      `mapstructure:"FHIR_TIMEOUT_SECONDS"`
	PatientSampleCount    int      `mapstructure:"PATIENT_SAMPLE_COUNT"`
	VocabFile             string   `mapstructure:"VOCAB_FILE"`
	CORSOrigins           []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS          float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeoutSeconds int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("FHIR_TIMEOUT_SECONDS", 10)
	v.SetDefault("PATIENT_SAMPLE_COUNT", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("FHIR_BASE_URL")
	v.BindEnv("FHIR_AUTH")
	v.BindEnv("FHIR_TIMEOUT_SECONDS")
	v.BindEnv("PATIENT_SAMPLE_COUNT")
	v.BindEnv("VOCAB_FILE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.FHIRBaseURL == "" {
		return nil, fmt.Errorf("FHIR_BASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// FHIRTimeout returns the bounded timeout applied to every upstream
// repository call.
func (c *Config) FHIRTimeout() time.Duration {
	return time.Duration(c.FHIRTimeoutSeconds) * time.Second
}

// RequestTimeout returns the deadline applied to each inbound request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. The FHIR base URL
// must be a well-formed absolute http(s) URL, and all bounded values must be
// positive so that upstream calls cannot run without a deadline.
func (c *Config) Validate() error {
	u, err := url.Parse(c.FHIRBaseURL)
	if err != nil {
		return fmt.Errorf("FHIR_BASE_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("FHIR_BASE_URL must use http or https, got %q", c.FHIRBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("FHIR_BASE_URL has no host: %q", c.FHIRBaseURL)
	}
	if c.FHIRTimeoutSeconds <= 0 {
		return fmt.Errorf("FHIR_TIMEOUT_SECONDS must be positive, got %d", c.FHIRTimeoutSeconds)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if c.PatientSampleCount <= 0 {
		return fmt.Errorf("PATIENT_SAMPLE_COUNT must be positive, got %d", c.PatientSampleCount)
	}
	return nil
}
