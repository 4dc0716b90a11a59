package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/creditbonus/bonus"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// TLS is enabled when both files are set
	TLSCertFile string
	TLSKeyFile  string
	// Database: postgres (default), mysql or memory
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for notifications and status cache
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	RedisEnabled  bool
	NotifyChannel string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Daily login bonus policy
	BonusBaseCredits      int
	BonusStreakCap        int
	BonusStreakWindowDays int
	BonusTimezone         string
	BonusAtomic           *bool
	BonusSource           string
	// Notice bar configuration
	NoticeTitle string
	NoticeHTML  string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("ignoring invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

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

// BonusPolicy builds the engine policy from configuration.
func (c AppConfig) BonusPolicy() (bonus.Policy, error) {
	p := bonus.DefaultPolicy()
	p.BaseCredits = c.BonusBaseCredits
	p.StreakBonusCap = c.BonusStreakCap
	p.StreakWindowDays = c.BonusStreakWindowDays
	if c.BonusAtomic != nil {
		p.Atomic = *c.BonusAtomic
	}
	p.Source = c.BonusSource
	loc, err := time.LoadLocation(c.BonusTimezone)
	if err != nil {
		return p, err
	}
	p.Location = loc
	return p, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}
	applyRaw(raw, out)
	return nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case json.Number:
			i, _ := t.Int64()
			return int(i)
		}
	}
	return 0
}

// getBool reports the value and whether the key was present as a bool.
func getBool(m map[string]any, key string) (bool, bool) {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b, true
		}
	}
	return false, false
}

func getStringSlice(m map[string]any, key string) []string {
	if v, ok := m[key]; ok {
		if arr, ok := v.([]any); ok {
			res := make([]string, 0, len(arr))
			for _, it := range arr {
				if s, ok := it.(string); ok {
					res = append(res, s)
				}
			}
			return res
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// applyRaw maps grouped sections first, then flat keys for anything still unset.
func applyRaw(raw map[string]any, out *AppConfig) {
	if app, ok := raw["app"].(map[string]any); ok {
		setString(&out.AppPort, getString(app, "AppPort"))
		setString(&out.JWTSecret, getString(app, "JWTSecret"))
		setInt(&out.RateLimitPerMinute, getInt(app, "RateLimitPerMinute"))
		setString(&out.TLSCertFile, getString(app, "TLSCertFile"))
		setString(&out.TLSKeyFile, getString(app, "TLSKeyFile"))
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		setString(&out.GinMode, getString(g, "Mode"))
		setString(&out.GinPath, getString(g, "LogPath"))
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		setString(&out.DBDriver, getString(dbs, "Driver"))
		setString(&out.DatabaseURI, getString(dbs, "DatabaseURI"))
		setString(&out.DBHost, getString(dbs, "DBHost"))
		setString(&out.DBPort, getString(dbs, "DBPort"))
		setString(&out.DBUser, getString(dbs, "DBUser"))
		setString(&out.DBPassword, getString(dbs, "DBPassword"))
		setString(&out.DBName, getString(dbs, "DBName"))
		setString(&out.DBSSLMode, getString(dbs, "SSLMode"))
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		setString(&out.RedisHost, getString(rds, "RedisHost"))
		setInt(&out.RedisPort, getInt(rds, "RedisPort"))
		setInt(&out.RedisDB, getInt(rds, "RedisDB"))
		setString(&out.RedisPassword, getString(rds, "RedisPassword"))
		setString(&out.NotifyChannel, getString(rds, "NotifyChannel"))
		if b, ok := getBool(rds, "Enabled"); ok {
			out.RedisEnabled = b
		}
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		setString(&out.LogLevel, getString(lg, "Level"))
		setString(&out.LogPath, getString(lg, "Path"))
		setString(&out.GinMode, getString(lg, "GinMode"))
		setString(&out.GinPath, getString(lg, "GinPath"))
		setInt(&out.LogMaxSizeMB, getInt(lg, "MaxSizeMB"))
		setInt(&out.LogMaxBackups, getInt(lg, "MaxBackups"))
		setInt(&out.LogMaxAgeDays, getInt(lg, "MaxAgeDays"))
		out.LogCompress, _ = getBool(lg, "Compress")
	}

	if bn, ok := raw["bonus"].(map[string]any); ok {
		setInt(&out.BonusBaseCredits, getInt(bn, "BaseCredits"))
		setInt(&out.BonusStreakCap, getInt(bn, "StreakCap"))
		setInt(&out.BonusStreakWindowDays, getInt(bn, "StreakWindowDays"))
		setString(&out.BonusTimezone, getString(bn, "Timezone"))
		setString(&out.BonusSource, getString(bn, "Source"))
		if b, ok := getBool(bn, "Atomic"); ok {
			out.BonusAtomic = &b
		}
	}

	if nt, ok := raw["notice"].(map[string]any); ok {
		setString(&out.NoticeTitle, getString(nt, "Title"))
		setString(&out.NoticeHTML, getString(nt, "HTML"))
	}

	// Also support reading flat keys directly for backward compatibility
	for key, dst := range map[string]*string{
		"AppPort":       &out.AppPort,
		"JWTSecret":     &out.JWTSecret,
		"GinMode":       &out.GinMode,
		"GinPath":       &out.GinPath,
		"DBDriver":      &out.DBDriver,
		"DatabaseURI":   &out.DatabaseURI,
		"DBHost":        &out.DBHost,
		"DBPort":        &out.DBPort,
		"DBUser":        &out.DBUser,
		"DBPassword":    &out.DBPassword,
		"DBName":        &out.DBName,
		"RedisHost":     &out.RedisHost,
		"RedisPassword": &out.RedisPassword,
		"LogLevel":      &out.LogLevel,
		"LogPath":       &out.LogPath,
		"BonusTimezone": &out.BonusTimezone,
	} {
		if *dst == "" {
			setString(dst, getString(raw, key))
		}
	}
	for key, dst := range map[string]*int{
		"RateLimitPerMinute":    &out.RateLimitPerMinute,
		"RedisPort":             &out.RedisPort,
		"RedisDB":               &out.RedisDB,
		"BonusBaseCredits":      &out.BonusBaseCredits,
		"BonusStreakCap":        &out.BonusStreakCap,
		"BonusStreakWindowDays": &out.BonusStreakWindowDays,
	} {
		if *dst == 0 {
			setInt(dst, getInt(raw, key))
		}
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = getStringSlice(raw, "AllowedOrigins")
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "mysql":
			c.DBPort = "3306"
		default:
			c.DBPort = "5432"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "postgres"
	}
	if c.DBName == "" {
		c.DBName = "creditbonus"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.NotifyChannel == "" {
		c.NotifyChannel = bonus.EventCreditsUpdated
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.BonusBaseCredits == 0 {
		c.BonusBaseCredits = bonus.DefaultBaseCredits
	}
	if c.BonusStreakCap == 0 {
		c.BonusStreakCap = bonus.DefaultStreakBonusCap
	}
	if c.BonusStreakWindowDays == 0 {
		c.BonusStreakWindowDays = bonus.DefaultStreakWindowDays
	}
	if c.BonusTimezone == "" {
		c.BonusTimezone = "UTC"
	}
	if c.BonusAtomic == nil {
		atomic := true
		c.BonusAtomic = &atomic
	}
	if c.BonusSource == "" {
		c.BonusSource = bonus.DefaultSource
	}
	if c.NoticeTitle == "" {
		c.NoticeTitle = "Daily bonus"
	}
	if c.NoticeHTML == "" {
		c.NoticeHTML = "<p>Log in every day to grow your streak and earn up to 13 credits a day.</p>"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("TLS_CERT_FILE", ""); v != "" {
		c.TLSCertFile = v
	}
	if v := getEnv("TLS_KEY_FILE", ""); v != "" {
		c.TLSKeyFile = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("DB_SSLMODE", ""); v != "" {
		c.DBSSLMode = v
	}
	if v := getEnv("REDIS_ENABLED", ""); v != "" {
		c.RedisEnabled = v == "true"
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("NOTIFY_CHANNEL", ""); v != "" {
		c.NotifyChannel = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("BONUS_BASE_CREDITS", ""); v != "" {
		c.BonusBaseCredits = mustParseInt(v)
	}
	if v := getEnv("BONUS_STREAK_CAP", ""); v != "" {
		c.BonusStreakCap = mustParseInt(v)
	}
	if v := getEnv("BONUS_STREAK_WINDOW_DAYS", ""); v != "" {
		c.BonusStreakWindowDays = mustParseInt(v)
	}
	if v := getEnv("BONUS_TIMEZONE", ""); v != "" {
		c.BonusTimezone = v
	}
	if v := getEnv("BONUS_ATOMIC", ""); v != "" {
		atomic := v == "true"
		c.BonusAtomic = &atomic
	}
	if v := getEnv("BONUS_SOURCE", ""); v != "" {
		c.BonusSource = v
	}
	if v := getEnv("NOTICE_TITLE", ""); v != "" {
		c.NoticeTitle = v
	}
	if v := getEnv("NOTICE_HTML", ""); v != "" {
		c.NoticeHTML = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
