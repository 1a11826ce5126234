package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Summary  SummaryConfig
	Slots    SlotRulesConfig
	Client   ClientConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// ConnMaxLifetime recycles pooled connections; zero keeps the driver default.
	ConnMaxLifetime time.Duration
	AppName         string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SummaryConfig governs caching and background refresh of department summaries.
type SummaryConfig struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	RefreshWorkers int
}

// SlotRulesConfig tunes the placement rules enforced by the slot service.
type SlotRulesConfig struct {
	CapacityScope       string
	MaxSameSlotDays     int
	WeeklyDayCap        int
	ExclusiveDays       []string
	EnforceDistribution bool
}

// ClientConfig points the slotboard CLI at a running slot service.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Token     string
	CacheTTL  time.Duration
	Namespace string
	UseRedis  bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *fs.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		AppName:         v.GetString("DB_APP_NAME"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Summary = SummaryConfig{
		CacheEnabled:   v.GetBool("ENABLE_SUMMARY_CACHE"),
		CacheTTL:       parseDuration(v.GetString("SUMMARY_CACHE_TTL"), 5*time.Minute),
		RefreshWorkers: v.GetInt("SUMMARY_REFRESH_WORKERS"),
	}

	cfg.Slots = SlotRulesConfig{
		CapacityScope:       v.GetString("SLOT_CAPACITY_SCOPE"),
		MaxSameSlotDays:     v.GetInt("SLOT_MAX_SAME_SLOT_DAYS"),
		WeeklyDayCap:        v.GetInt("SLOT_WEEKLY_DAY_CAP"),
		ExclusiveDays:       splitAndTrim(v.GetString("SLOT_EXCLUSIVE_DAYS")),
		EnforceDistribution: v.GetBool("SLOT_ENFORCE_DISTRIBUTION"),
	}

	cfg.Client = ClientConfig{
		BaseURL:   v.GetString("SLOT_API_URL"),
		Timeout:   parseDuration(v.GetString("SLOT_API_TIMEOUT"), 15*time.Second),
		Token:     v.GetString("SLOT_API_TOKEN"),
		CacheTTL:  parseDuration(v.GetString("SLOT_API_CACHE_TTL"), 5*time.Minute),
		Namespace: v.GetString("SLOT_API_CACHE_NAMESPACE"),
		UseRedis:  v.GetBool("SLOT_API_CACHE_REDIS"),
	}

	return cfg, nil
}

// Policy converts the rule settings into an allocation policy.
func (c SlotRulesConfig) Policy() (allocation.Policy, error) {
	p := allocation.DefaultPolicy()
	switch allocation.CapacityScope(strings.ToLower(c.CapacityScope)) {
	case "", allocation.ScopeRoster:
	case allocation.ScopeDepartment:
		p.Scope = allocation.ScopeDepartment
	default:
		return p, fmt.Errorf("invalid SLOT_CAPACITY_SCOPE %q", c.CapacityScope)
	}
	if c.MaxSameSlotDays > 0 {
		p.MaxSameSlotDays = c.MaxSameSlotDays
	}
	if c.WeeklyDayCap > 0 {
		p.WeeklyDayCap = c.WeeklyDayCap
	}
	for _, raw := range c.ExclusiveDays {
		day, err := models.ParseDay(raw)
		if err != nil {
			return p, fmt.Errorf("invalid SLOT_EXCLUSIVE_DAYS: %w", err)
		}
		p.ExclusiveDays = append(p.ExclusiveDays, day)
	}
	p.EnforceDistribution = c.EnforceDistribution
	return p, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "dept_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_APP_NAME", "dept-slot-api")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SUMMARY_CACHE", true)
	v.SetDefault("SUMMARY_CACHE_TTL", "5m")
	v.SetDefault("SUMMARY_REFRESH_WORKERS", 1)

	v.SetDefault("SLOT_CAPACITY_SCOPE", string(allocation.ScopeRoster))
	v.SetDefault("SLOT_MAX_SAME_SLOT_DAYS", allocation.DefaultMaxSameSlotDays)
	v.SetDefault("SLOT_WEEKLY_DAY_CAP", 0)
	v.SetDefault("SLOT_EXCLUSIVE_DAYS", "")
	v.SetDefault("SLOT_ENFORCE_DISTRIBUTION", false)

	v.SetDefault("SLOT_API_URL", "http://localhost:8080/api")
	v.SetDefault("SLOT_API_TIMEOUT", "15s")
	v.SetDefault("SLOT_API_TOKEN", "")
	v.SetDefault("SLOT_API_CACHE_TTL", "5m")
	v.SetDefault("SLOT_API_CACHE_NAMESPACE", "slotboard")
	v.SetDefault("SLOT_API_CACHE_REDIS", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
