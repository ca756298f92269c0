package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database drivers accepted by DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Export storage drivers accepted by EXPORT_STORAGE_DRIVER.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Log           LogConfig
	Affectation   AffectationConfig
	Statistics    StatisticsConfig
	Exports       ExportsConfig
	EnableMetrics bool
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
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

// AffectationConfig tunes the assignment engine and its job queue.
type AffectationConfig struct {
	DefaultExecutions         int
	MaxExecutions             int
	Seed                      int64
	Workers                   int
	ErrorOrganizationRef      string
	EditOrganizationRef       string
	ErasmusReferenceThreshold int
	FullDistancePenalty       float64
	JobTTL                    time.Duration
	JobWorkers                int
	JobRetries                int
}

// StatisticsConfig controls caching of solution statistics.
type StatisticsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ExportsConfig configures assignment sheet exports.
type ExportsConfig struct {
	StorageDriver   string
	StorageDir      string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PathStyle     bool
	S3Prefix        string
	S3AccessKeyID   string
	S3SecretKey     string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.EnableMetrics = v.GetBool("ENABLE_METRICS")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
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

	cfg.Affectation = AffectationConfig{
		DefaultExecutions:         v.GetInt("AFFECTATION_DEFAULT_EXECUTIONS"),
		MaxExecutions:             v.GetInt("AFFECTATION_MAX_EXECUTIONS"),
		Seed:                      v.GetInt64("AFFECTATION_SEED"),
		Workers:                   v.GetInt("AFFECTATION_WORKERS"),
		ErrorOrganizationRef:      v.GetString("AFFECTATION_ERROR_ORGANIZATION_REF"),
		EditOrganizationRef:       v.GetString("AFFECTATION_EDIT_ORGANIZATION_REF"),
		ErasmusReferenceThreshold: v.GetInt("AFFECTATION_ERASMUS_REF_THRESHOLD"),
		FullDistancePenalty:       v.GetFloat64("AFFECTATION_FULL_DISTANCE_PENALTY"),
		JobTTL:                    parseDuration(v.GetString("AFFECTATION_JOB_TTL"), time.Hour),
		JobWorkers:                v.GetInt("AFFECTATION_JOB_WORKERS"),
		JobRetries:                v.GetInt("AFFECTATION_JOB_RETRIES"),
	}

	cfg.Statistics = StatisticsConfig{
		CacheEnabled: v.GetBool("STATS_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("STATS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDriver:   strings.ToLower(v.GetString("EXPORT_STORAGE_DRIVER")),
		StorageDir:      v.GetString("EXPORT_STORAGE_DIR"),
		S3Bucket:        v.GetString("EXPORT_S3_BUCKET"),
		S3Region:        v.GetString("EXPORT_S3_REGION"),
		S3Endpoint:      v.GetString("EXPORT_S3_ENDPOINT"),
		S3PathStyle:     v.GetBool("EXPORT_S3_PATH_STYLE"),
		S3Prefix:        v.GetString("EXPORT_S3_PREFIX"),
		S3AccessKeyID:   v.GetString("EXPORT_S3_ACCESS_KEY_ID"),
		S3SecretKey:     v.GetString("EXPORT_S3_SECRET_ACCESS_KEY"),
		SignedURLSecret: v.GetString("EXPORT_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORT_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORT_CLEANUP_INTERVAL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "internship")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AFFECTATION_DEFAULT_EXECUTIONS", 10)
	v.SetDefault("AFFECTATION_MAX_EXECUTIONS", 500)
	v.SetDefault("AFFECTATION_SEED", 0)
	v.SetDefault("AFFECTATION_WORKERS", 1)
	v.SetDefault("AFFECTATION_ERROR_ORGANIZATION_REF", "999")
	v.SetDefault("AFFECTATION_EDIT_ORGANIZATION_REF", "888")
	v.SetDefault("AFFECTATION_ERASMUS_REF_THRESHOLD", 500)
	v.SetDefault("AFFECTATION_FULL_DISTANCE_PENALTY", 3000)
	v.SetDefault("AFFECTATION_JOB_TTL", "1h")
	v.SetDefault("AFFECTATION_JOB_WORKERS", 1)
	v.SetDefault("AFFECTATION_JOB_RETRIES", 0)

	v.SetDefault("STATS_CACHE_ENABLED", false)
	v.SetDefault("STATS_CACHE_TTL", "10m")

	v.SetDefault("EXPORT_STORAGE_DRIVER", StorageLocal)
	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORT_S3_BUCKET", "")
	v.SetDefault("EXPORT_S3_REGION", "us-east-1")
	v.SetDefault("EXPORT_S3_ENDPOINT", "")
	v.SetDefault("EXPORT_S3_PATH_STYLE", false)
	v.SetDefault("EXPORT_S3_PREFIX", "affectations")
	v.SetDefault("EXPORT_S3_ACCESS_KEY_ID", "")
	v.SetDefault("EXPORT_S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("EXPORT_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORT_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORT_CLEANUP_INTERVAL", "1h")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
