package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config.json or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTL           time.Duration
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminUsernames     []string
	// Viewer day boundary used when a request carries no X-Timezone header
	DefaultTimeZone string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching, token revocation and realtime fan-out
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
	// Gin framework configuration
	GinMode string
	GinPath string
	// Object storage for uploaded images
	StorageMode   string
	UploadDir     string
	PublicBaseURL string
	GCSBucket     string
	// Community feed
	FeedPageSize int
	FeedCacheTTL time.Duration
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.Mutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	c, err := Read(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in config.json or environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.Lock()
	ok := loaded
	c := cfg
	mu.Unlock()
	if !ok {
		return Load()
	}
	return c
}

// Set replaces the cached configuration. Used by tests and tools that build config in code.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Read builds an AppConfig from defaults, the optional JSON file at path and environment overrides.
// A missing file is not an error; malformed JSON is.
func Read(path string) (AppConfig, error) {
	v := viper.New()
	applyDefaults(v)
	bindEnv(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return AppConfig{}, err
			}
		}
	}

	return AppConfig{
		AppPort:            v.GetString("app.port"),
		JWTSecret:          v.GetString("app.jwt_secret"),
		TokenTTL:           v.GetDuration("app.token_ttl"),
		RateLimitPerMinute: v.GetInt("app.rate_limit_per_minute"),
		AllowedOrigins:     splitList(v.GetStringSlice("app.allowed_origins")),
		AdminUsernames:     splitList(v.GetStringSlice("app.admin_usernames")),
		DefaultTimeZone:    v.GetString("app.default_time_zone"),

		DBDriver:    strings.ToLower(v.GetString("database.driver")),
		DatabaseURI: v.GetString("database.uri"),
		DBHost:      v.GetString("database.host"),
		DBPort:      v.GetString("database.port"),
		DBUser:      v.GetString("database.user"),
		DBPassword:  v.GetString("database.password"),
		DBName:      v.GetString("database.name"),

		RedisHost:     v.GetString("redis.host"),
		RedisPort:     v.GetInt("redis.port"),
		RedisDB:       v.GetInt("redis.db"),
		RedisPassword: v.GetString("redis.password"),

		LogLevel:      strings.ToLower(v.GetString("log.level")),
		LogPath:       v.GetString("log.path"),
		LogMaxSizeMB:  v.GetInt("log.max_size_mb"),
		LogMaxBackups: v.GetInt("log.max_backups"),
		LogMaxAgeDays: v.GetInt("log.max_age_days"),
		LogCompress:   v.GetBool("log.compress"),
		GinMode:       v.GetString("log.gin_mode"),
		GinPath:       v.GetString("log.gin_path"),

		StorageMode:   strings.ToLower(v.GetString("storage.mode")),
		UploadDir:     v.GetString("storage.upload_dir"),
		PublicBaseURL: strings.TrimRight(v.GetString("storage.public_base_url"), "/"),
		GCSBucket:     v.GetString("storage.gcs_bucket"),

		FeedPageSize: v.GetInt("feed.page_size"),
		FeedCacheTTL: v.GetDuration("feed.cache_ttl"),
	}, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.token_ttl", 72*time.Hour)
	v.SetDefault("app.rate_limit_per_minute", 120)
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.default_time_zone", "UTC")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "5432")
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.gin_mode", "release")
	v.SetDefault("log.gin_path", "logs/gin.log")
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.upload_dir", "static/uploads")
	v.SetDefault("storage.public_base_url", "/static/uploads")
	v.SetDefault("feed.page_size", 20)
	v.SetDefault("feed.cache_ttl", 30*time.Second)
}

// bindEnv maps flat environment variables onto grouped keys.
func bindEnv(v *viper.Viper) {
	envs := map[string]string{
		"app.port":                  "APP_PORT",
		"app.jwt_secret":            "JWT_SECRET",
		"app.token_ttl":             "TOKEN_TTL",
		"app.rate_limit_per_minute": "RATE_LIMIT_PER_MINUTE",
		"app.allowed_origins":       "ALLOWED_ORIGINS",
		"app.admin_usernames":       "ADMIN_USERNAMES",
		"app.default_time_zone":     "DEFAULT_TIME_ZONE",
		"database.driver":           "DB_DRIVER",
		"database.uri":              "DATABASE_URI",
		"database.host":             "DB_HOST",
		"database.port":             "DB_PORT",
		"database.user":             "DB_USER",
		"database.password":         "DB_PASSWORD",
		"database.name":             "DB_NAME",
		"redis.host":                "REDIS_HOST",
		"redis.port":                "REDIS_PORT",
		"redis.db":                  "REDIS_DB",
		"redis.password":            "REDIS_PASSWORD",
		"log.level":                 "LOG_LEVEL",
		"log.path":                  "LOG_PATH",
		"log.max_size_mb":           "LOG_MAX_SIZE_MB",
		"log.max_backups":           "LOG_MAX_BACKUPS",
		"log.max_age_days":          "LOG_MAX_AGE_DAYS",
		"log.compress":              "LOG_COMPRESS",
		"log.gin_mode":              "GIN_MODE",
		"log.gin_path":              "GIN_LOG_PATH",
		"storage.mode":              "STORAGE_MODE",
		"storage.upload_dir":        "UPLOAD_DIR",
		"storage.public_base_url":   "STORAGE_PUBLIC_BASE_URL",
		"storage.gcs_bucket":        "GCS_BUCKET",
		"feed.page_size":            "FEED_PAGE_SIZE",
		"feed.cache_ttl":            "FEED_CACHE_TTL",
	}
	for key, env := range envs {
		_ = v.BindEnv(key, env)
	}
}

// splitList accepts both JSON arrays and comma separated env values.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Location resolves the configured default time zone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	if c.DefaultTimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
