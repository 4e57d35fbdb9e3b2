package config

import (
	"errors"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort     string
	JWTSecret   string
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Identity providers
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	SessionTTLHours    int
	// bcrypt hashes of keys accepted from the game-library sync and wallet flow
	ServiceKeyHashes []string
	AdminHandles     []string
	// HTTP surface
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for locks and caching
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
	// Economy
	CheckInBasePoints    int
	StreakBonusEvery     int
	StreakBonusStep      int
	StreakBonusCap       int
	BoostWindowDays      int
	MaxBoostPercent      int
	LevelStepPoints      int
	AuditIntervalMinutes int
	CatalogPath          string
}

var cfg AppConfig
var loaded bool

// envKeys maps config keys to the environment variables that override them.
var envKeys = map[string]string{
	"AppPort":              "APP_PORT",
	"JWTSecret":            "JWT_SECRET",
	"DBDriver":             "DB_DRIVER",
	"DatabaseURI":          "DATABASE_URI",
	"DBHost":               "DB_HOST",
	"DBPort":               "DB_PORT",
	"DBUser":               "DB_USER",
	"DBPassword":           "DB_PASSWORD",
	"DBName":               "DB_NAME",
	"GitHubClientID":       "GITHUB_CLIENT_ID",
	"GitHubClientSecret":   "GITHUB_CLIENT_SECRET",
	"GoogleClientID":       "GOOGLE_CLIENT_ID",
	"GoogleClientSecret":   "GOOGLE_CLIENT_SECRET",
	"OAuthRedirectBase":    "OAUTH_REDIRECT_BASE_URL",
	"SessionTTLHours":      "SESSION_TTL_HOURS",
	"ServiceKeyHashes":     "SERVICE_KEY_HASHES",
	"AdminHandles":         "ADMIN_HANDLES",
	"RateLimitPerMinute":   "RATE_LIMIT_PER_MINUTE",
	"AllowedOrigins":       "CORS_ALLOWED_ORIGINS",
	"GinMode":              "GIN_MODE",
	"GinPath":              "GIN_PATH",
	"RedisHost":            "REDIS_HOST",
	"RedisPort":            "REDIS_PORT",
	"RedisDB":              "REDIS_DB",
	"RedisPassword":        "REDIS_PASSWORD",
	"LogLevel":             "LOG_LEVEL",
	"LogPath":              "LOG_PATH",
	"LogMaxSizeMB":         "LOG_MAX_SIZE_MB",
	"LogMaxBackups":        "LOG_MAX_BACKUPS",
	"LogMaxAgeDays":        "LOG_MAX_AGE_DAYS",
	"LogCompress":          "LOG_COMPRESS",
	"CheckInBasePoints":    "CHECKIN_BASE_POINTS",
	"StreakBonusEvery":     "STREAK_BONUS_EVERY",
	"StreakBonusStep":      "STREAK_BONUS_STEP",
	"StreakBonusCap":       "STREAK_BONUS_CAP",
	"BoostWindowDays":      "BOOST_WINDOW_DAYS",
	"MaxBoostPercent":      "MAX_BOOST_PERCENT",
	"LevelStepPoints":      "LEVEL_STEP_POINTS",
	"AuditIntervalMinutes": "AUDIT_INTERVAL_MINUTES",
	"CatalogPath":          "CATALOG_PATH",
}

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: defaults -> config/config.{yaml,json} -> .env -> environment variables
	_ = godotenv.Load()

	v, err := newViper()
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	c, err := decode(v)
	if err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Override replaces the cached configuration. Used by tools and tests that build config in code.
func Override(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (AppConfig, error) {
	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	// Lists from the environment arrive as one comma separated string.
	c.ServiceKeyHashes = splitList(v.GetStringSlice("ServiceKeyHashes"))
	c.AdminHandles = splitList(v.GetStringSlice("AdminHandles"))
	c.AllowedOrigins = splitList(v.GetStringSlice("AllowedOrigins"))
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("AppPort", "8080")
	v.SetDefault("DBDriver", "mysql")
	v.SetDefault("DBHost", "127.0.0.1")
	v.SetDefault("DBPort", "3306")
	v.SetDefault("DBUser", "root")
	v.SetDefault("DBName", "playpoints")
	v.SetDefault("OAuthRedirectBase", "http://localhost:8080")
	v.SetDefault("SessionTTLHours", 72)
	v.SetDefault("RateLimitPerMinute", 60)
	v.SetDefault("AllowedOrigins", []string{"*"})
	v.SetDefault("GinMode", "release")
	v.SetDefault("GinPath", "logs/go_gin.log")
	v.SetDefault("RedisPort", 6379)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogMaxSizeMB", 100)
	v.SetDefault("LogMaxBackups", 3)
	v.SetDefault("LogMaxAgeDays", 7)
	v.SetDefault("CheckInBasePoints", 10)
	v.SetDefault("StreakBonusEvery", 7)
	v.SetDefault("StreakBonusStep", 5)
	v.SetDefault("StreakBonusCap", 50)
	v.SetDefault("BoostWindowDays", 30)
	v.SetDefault("MaxBoostPercent", 100)
	v.SetDefault("LevelStepPoints", 500)
	v.SetDefault("CatalogPath", "config/catalog.yaml")
}

// applyDefaults fills zero values for settings built outside viper. A zero
// streak bonus step or cap is a valid economy and is kept.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 72
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CheckInBasePoints == 0 {
		c.CheckInBasePoints = 10
	}
	if c.StreakBonusEvery == 0 {
		c.StreakBonusEvery = 7
	}
	if c.BoostWindowDays == 0 {
		c.BoostWindowDays = 30
	}
	if c.MaxBoostPercent == 0 {
		c.MaxBoostPercent = 100
	}
	if c.LevelStepPoints == 0 {
		c.LevelStepPoints = 500
	}
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// IsAdminHandle reports whether handle is configured as an administrator.
func IsAdminHandle(handle string) bool {
	for _, h := range Get().AdminHandles {
		if strings.EqualFold(strings.TrimSpace(h), handle) {
			return true
		}
	}
	return false
}
