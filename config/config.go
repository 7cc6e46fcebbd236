package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	SessionSecret      string
	SessionTTLHours    int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database: DatabaseURI wins over the discrete MySQL parts
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for session revocation, caching and registration limits
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Model server
	ModelServerURL  string
	ModelName       string
	ModelTimeoutSec int
	// Scan archive: "none", "local" or "minio"
	ArchiveBackend       string
	ArchiveDir           string
	ArchiveRetainMinutes int
	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOBucket          string
	MinIOUseSSL          bool
	// Scan events
	KafkaBrokers []string
	KafkaTopic   string
	// Registration security
	RegisterCaptchaEnabled bool
	RegisterMaxPerIPPerDay int
}

// ErrMissingSecret is returned by Load when no session signing secret was configured.
var ErrMissingSecret = errors.New("SESSION_SECRET must be set in environment variables")

// DefaultPath is where Load looks for the JSON config file.
var DefaultPath = filepath.Join("config", "config.json")

type setting struct {
	key string
	env string
	def any
}

// settings lists every config key with its environment override and default.
var settings = []setting{
	{"app.port", "APP_PORT", "5000"},
	{"app.session_secret", "SESSION_SECRET", ""},
	{"app.session_ttl_hours", "SESSION_TTL_HOURS", 72},
	{"app.rate_limit_per_minute", "RATE_LIMIT_PER_MINUTE", 60},
	{"app.allowed_origins", "CORS_ALLOWED_ORIGINS", "*"},
	{"gin.mode", "GIN_MODE", "release"},
	{"gin.log_path", "GIN_PATH", "logs/gin.log"},
	{"database.uri", "DATABASE_URI", ""},
	{"database.host", "DB_HOST", ""},
	{"database.port", "DB_PORT", "3306"},
	{"database.user", "DB_USER", ""},
	{"database.password", "DB_PASSWORD", ""},
	{"database.name", "DB_NAME", "pneumoscan"},
	{"redis.host", "REDIS_HOST", ""},
	{"redis.port", "REDIS_PORT", 6379},
	{"redis.db", "REDIS_DB", 0},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"log.level", "LOG_LEVEL", "info"},
	{"log.path", "LOG_PATH", "logs/app.log"},
	{"log.max_size_mb", "LOG_MAX_SIZE_MB", 100},
	{"log.max_backups", "LOG_MAX_BACKUPS", 3},
	{"log.max_age_days", "LOG_MAX_AGE_DAYS", 7},
	{"log.compress", "LOG_COMPRESS", false},
	{"model.server_url", "MODEL_SERVER_URL", "http://localhost:8501"},
	{"model.name", "MODEL_NAME", "pneumonia"},
	{"model.timeout_sec", "MODEL_TIMEOUT_SEC", 10},
	{"archive.backend", "ARCHIVE_BACKEND", "local"},
	{"archive.dir", "ARCHIVE_DIR", "uploads"},
	{"archive.retain_minutes", "ARCHIVE_RETAIN_MINUTES", 24 * 60},
	{"archive.minio_endpoint", "MINIO_ENDPOINT", ""},
	{"archive.minio_access_key", "MINIO_ACCESS_KEY", ""},
	{"archive.minio_secret_key", "MINIO_SECRET_KEY", ""},
	{"archive.minio_bucket", "MINIO_BUCKET", "scans"},
	{"archive.minio_use_ssl", "MINIO_USE_SSL", false},
	{"kafka.brokers", "KAFKA_BROKERS", ""},
	{"kafka.topic", "KAFKA_TOPIC", "scans.classified"},
	{"register.captcha_enabled", "REGISTER_CAPTCHA_ENABLED", false},
	{"register.max_per_ip_per_day", "REGISTER_MAX_PER_IP_PER_DAY", 0},
}

// Load reads configuration from DefaultPath, a local .env file and the environment.
func Load() (AppConfig, error) {
	return LoadFrom(DefaultPath)
}

// LoadFrom reads configuration with precedence: defaults -> JSON file -> environment.
// A .env file in the working directory only fills variables that are not already set.
func LoadFrom(path string) (AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		_ = v.BindEnv(s.key, s.env)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return AppConfig{}, err
			}
		}
	}

	cfg := AppConfig{
		AppPort:                v.GetString("app.port"),
		SessionSecret:          v.GetString("app.session_secret"),
		SessionTTLHours:        v.GetInt("app.session_ttl_hours"),
		RateLimitPerMinute:     v.GetInt("app.rate_limit_per_minute"),
		AllowedOrigins:         stringList(v, "app.allowed_origins"),
		GinMode:                v.GetString("gin.mode"),
		GinPath:                v.GetString("gin.log_path"),
		DatabaseURI:            v.GetString("database.uri"),
		DBHost:                 v.GetString("database.host"),
		DBPort:                 v.GetString("database.port"),
		DBUser:                 v.GetString("database.user"),
		DBPassword:             v.GetString("database.password"),
		DBName:                 v.GetString("database.name"),
		RedisHost:              v.GetString("redis.host"),
		RedisPort:              v.GetInt("redis.port"),
		RedisDB:                v.GetInt("redis.db"),
		RedisPassword:          v.GetString("redis.password"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		LogPath:                v.GetString("log.path"),
		LogMaxSizeMB:           v.GetInt("log.max_size_mb"),
		LogMaxBackups:          v.GetInt("log.max_backups"),
		LogMaxAgeDays:          v.GetInt("log.max_age_days"),
		LogCompress:            v.GetBool("log.compress"),
		ModelServerURL:         strings.TrimRight(v.GetString("model.server_url"), "/"),
		ModelName:              v.GetString("model.name"),
		ModelTimeoutSec:        v.GetInt("model.timeout_sec"),
		ArchiveBackend:         strings.ToLower(v.GetString("archive.backend")),
		ArchiveDir:             v.GetString("archive.dir"),
		ArchiveRetainMinutes:   v.GetInt("archive.retain_minutes"),
		MinIOEndpoint:          v.GetString("archive.minio_endpoint"),
		MinIOAccessKey:         v.GetString("archive.minio_access_key"),
		MinIOSecretKey:         v.GetString("archive.minio_secret_key"),
		MinIOBucket:            v.GetString("archive.minio_bucket"),
		MinIOUseSSL:            v.GetBool("archive.minio_use_ssl"),
		KafkaBrokers:           stringList(v, "kafka.brokers"),
		KafkaTopic:             v.GetString("kafka.topic"),
		RegisterCaptchaEnabled: v.GetBool("register.captcha_enabled"),
		RegisterMaxPerIPPerDay: v.GetInt("register.max_per_ip_per_day"),
	}

	if cfg.SessionSecret == "" {
		return AppConfig{}, ErrMissingSecret
	}
	return cfg, nil
}

// SessionTTL is the lifetime of an issued session token.
func (c AppConfig) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// ModelTimeout bounds a single model server round trip.
func (c AppConfig) ModelTimeout() time.Duration {
	if c.ModelTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ModelTimeoutSec) * time.Second
}

// ArchiveRetention is how long archived scan images are kept.
func (c AppConfig) ArchiveRetention() time.Duration {
	if c.ArchiveRetainMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.ArchiveRetainMinutes) * time.Minute
}

// stringList accepts either a JSON array or a comma separated string.
func stringList(v *viper.Viper, key string) []string {
	var parts []string
	switch raw := v.Get(key).(type) {
	case string:
		parts = strings.Split(raw, ",")
	case []string:
		parts = raw
	case []any:
		for _, it := range raw {
			if s, ok := it.(string); ok {
				parts = append(parts, s)
			}
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
