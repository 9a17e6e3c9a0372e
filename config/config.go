package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"adreport-forensics/models"
)

// Config holds all application configuration. Values come from defaults,
// then an optional YAML file, then environment variables (a .env file is
// loaded into the environment first).
type Config struct {
	NoiseFloorImpressions  int
	ImpPercentileThreshold float64

	// Explicit threshold overrides; nil means "use the suggested baseline".
	CTRHighThreshold    *float64
	QualityLowThreshold *float64
	CTRLowThreshold     *float64

	// Fallback thresholds used when a dataset is empty after filtering.
	FallbackCTRHigh    float64
	FallbackQualityLow float64
	FallbackCTRLow     float64

	MissingFieldPolicy string
	MaxConcurrency     int
	LogLevel           string

	CSVOutputPath string
	StoreEnabled  bool

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int
	RetryBaseMs      int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("noise_floor_impressions", 10)
	v.SetDefault("imp_percentile_threshold", 75)

	v.SetDefault("fallback_ctr_high", 4.0)
	v.SetDefault("fallback_quality_low", 0.5)
	v.SetDefault("fallback_ctr_low", 1.5)

	v.SetDefault("missing_field_policy", "warn")
	v.SetDefault("max_concurrency", 4)
	v.SetDefault("log_level", "info")

	v.SetDefault("csv_output_path", "")
	v.SetDefault("store_enabled", false)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "forensics")
	v.SetDefault("postgres_password", "forensics")
	v.SetDefault("postgres_db", "ad_forensics")
	v.SetDefault("postgres_sslmode", "disable")
	v.SetDefault("max_retries", 5)
	v.SetDefault("retry_base_ms", 500)
}

// Load reads the .env file and the optional YAML config at path, and returns
// a validated Config. An empty path skips the config file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	ctrHigh, err := optionalFloat(v, "ctr_high_threshold")
	if err != nil {
		return nil, err
	}
	qualityLow, err := optionalFloat(v, "quality_low_threshold")
	if err != nil {
		return nil, err
	}
	ctrLow, err := optionalFloat(v, "ctr_low_threshold")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		NoiseFloorImpressions:  v.GetInt("noise_floor_impressions"),
		ImpPercentileThreshold: v.GetFloat64("imp_percentile_threshold"),

		CTRHighThreshold:    ctrHigh,
		QualityLowThreshold: qualityLow,
		CTRLowThreshold:     ctrLow,

		FallbackCTRHigh:    v.GetFloat64("fallback_ctr_high"),
		FallbackQualityLow: v.GetFloat64("fallback_quality_low"),
		FallbackCTRLow:     v.GetFloat64("fallback_ctr_low"),

		MissingFieldPolicy: strings.ToLower(v.GetString("missing_field_policy")),
		MaxConcurrency:     v.GetInt("max_concurrency"),
		LogLevel:           v.GetString("log_level"),

		CSVOutputPath: v.GetString("csv_output_path"),
		StoreEnabled:  v.GetBool("store_enabled"),

		PostgresHost:     v.GetString("postgres_host"),
		PostgresPort:     v.GetString("postgres_port"),
		PostgresUser:     v.GetString("postgres_user"),
		PostgresPassword: v.GetString("postgres_password"),
		PostgresDB:       v.GetString("postgres_db"),
		PostgresSSLMode:  v.GetString("postgres_sslmode"),
		MaxRetries:       v.GetInt("max_retries"),
		RetryBaseMs:      v.GetInt("retry_base_ms"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// optionalFloat returns nil for an unset or blank key. Text that is not a
// number is rejected instead of becoming a 0 threshold.
func optionalFloat(v *viper.Viper, key string) (*float64, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return nil, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q is not a number", models.ErrInvalidConfig, key, raw)
	}
	return &f, nil
}

// Validate rejects values outside the ranges the analysis accepts.
func (c *Config) Validate() error {
	var errs []error
	if c.NoiseFloorImpressions < 0 {
		errs = append(errs, fmt.Errorf("noise_floor_impressions must be >= 0, got %d", c.NoiseFloorImpressions))
	}
	if c.ImpPercentileThreshold < 50 || c.ImpPercentileThreshold > 99 {
		errs = append(errs, fmt.Errorf("imp_percentile_threshold must be within 50-99, got %v", c.ImpPercentileThreshold))
	}
	if c.QualityLowThreshold != nil && (*c.QualityLowThreshold < 0 || *c.QualityLowThreshold > 1) {
		errs = append(errs, fmt.Errorf("quality_low_threshold must be within 0-1, got %v", *c.QualityLowThreshold))
	}
	if c.CTRHighThreshold != nil && *c.CTRHighThreshold < 0 {
		errs = append(errs, fmt.Errorf("ctr_high_threshold must be >= 0, got %v", *c.CTRHighThreshold))
	}
	if c.CTRLowThreshold != nil && *c.CTRLowThreshold < 0 {
		errs = append(errs, fmt.Errorf("ctr_low_threshold must be >= 0, got %v", *c.CTRLowThreshold))
	}
	switch c.MissingFieldPolicy {
	case "warn", "fail":
	default:
		errs = append(errs, fmt.Errorf("missing_field_policy must be warn or fail, got %q", c.MissingFieldPolicy))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be >= 1, got %d", c.MaxConcurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", models.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Overrides returns the user-chosen thresholds. The impression percentile
// is not among them: it reaches the baseline as its fixed default.
func (c *Config) Overrides() models.ThresholdOverrides {
	return models.ThresholdOverrides{
		CTRHigh:    c.CTRHighThreshold,
		QualityLow: c.QualityLowThreshold,
		CTRLow:     c.CTRLowThreshold,
	}
}

// Fallback is the baseline reported for a dataset with no rows left.
func (c *Config) Fallback() models.BaselineStats {
	return models.BaselineStats{
		CTRHighThreshold:       c.FallbackCTRHigh,
		QualityLowThreshold:    c.FallbackQualityLow,
		CTRLowThreshold:        c.FallbackCTRLow,
		ImpPercentileThreshold: c.ImpPercentileThreshold,
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
