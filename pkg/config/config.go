package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Data backends supported by the repository layer.
const (
	DataBackendREST     = "rest"
	DataBackendPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	BaaS        BaaSConfig
	DataBackend string
	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	Reconciler  ReconcilerConfig
	ListCache   ListCacheConfig
	Files       FilesConfig
	CORS        CORSConfig
	Log         LogConfig
}

// BaaSConfig points at the hosted backend (auth + data API).
type BaaSConfig struct {
	URL            string
	AnonKey        string
	JWTSecret      string
	Timeout        time.Duration
	OAuthProviders []string
	OAuthRedirect  string
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
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig governs the browser session cookie.
type SessionConfig struct {
	CookieName    string
	TTL           time.Duration
	Secure        bool
	RefreshLeeway time.Duration
}

// ReconcilerConfig sizes the profile reconciliation workers.
type ReconcilerConfig struct {
	Workers    int
	BufferSize int
}

// ListCacheConfig toggles read-through caching of directory listings.
type ListCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// FilesConfig controls the file viewer/editor storage.
type FilesConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	Retention        time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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

	cfg.BaaS = BaaSConfig{
		URL:            strings.TrimRight(v.GetString("BAAS_URL"), "/"),
		AnonKey:        v.GetString("BAAS_ANON_KEY"),
		JWTSecret:      v.GetString("BAAS_JWT_SECRET"),
		Timeout:        parseDuration(v.GetString("BAAS_TIMEOUT"), 10*time.Second),
		OAuthProviders: splitAndTrim(v.GetString("OAUTH_PROVIDERS")),
		OAuthRedirect:  v.GetString("OAUTH_REDIRECT_URL"),
	}

	cfg.DataBackend = strings.ToLower(v.GetString("DATA_BACKEND"))
	if cfg.DataBackend != DataBackendPostgres {
		cfg.DataBackend = DataBackendREST
	}

	cfg.Database = DatabaseConfig{
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		CookieName:    v.GetString("SESSION_COOKIE_NAME"),
		TTL:           parseDuration(v.GetString("SESSION_TTL"), 7*24*time.Hour),
		Secure:        v.GetBool("SESSION_COOKIE_SECURE"),
		RefreshLeeway: parseDuration(v.GetString("SESSION_REFRESH_LEEWAY"), 30*time.Second),
	}

	cfg.Reconciler = ReconcilerConfig{
		Workers:    v.GetInt("RECONCILER_WORKERS"),
		BufferSize: v.GetInt("RECONCILER_BUFFER"),
	}

	cfg.ListCache = ListCacheConfig{
		Enabled: v.GetBool("ENABLE_LIST_CACHE"),
		TTL:     parseDuration(v.GetString("LIST_CACHE_TTL"), time.Minute),
	}

	maxFileSize := v.GetInt64("FILES_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	cfg.Files = FilesConfig{
		StorageDir:       v.GetString("FILES_STORAGE_DIR"),
		MaxFileSizeBytes: maxFileSize,
		SignedURLSecret:  v.GetString("FILES_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("FILES_SIGNED_URL_TTL"), 15*time.Minute),
		Retention:        parseDuration(v.GetString("FILES_RETENTION"), 0),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BAAS_URL", "http://localhost:54321")
	v.SetDefault("BAAS_ANON_KEY", "")
	v.SetDefault("BAAS_JWT_SECRET", "")
	v.SetDefault("BAAS_TIMEOUT", "10s")
	v.SetDefault("OAUTH_PROVIDERS", "google,github")
	v.SetDefault("OAUTH_REDIRECT_URL", "http://localhost:8080/api/v1/auth/callback")

	v.SetDefault("DATA_BACKEND", DataBackendREST)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_COOKIE_NAME", "etp_session")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_REFRESH_LEEWAY", "30s")

	v.SetDefault("RECONCILER_WORKERS", 2)
	v.SetDefault("RECONCILER_BUFFER", 64)

	v.SetDefault("ENABLE_LIST_CACHE", false)
	v.SetDefault("LIST_CACHE_TTL", "1m")

	v.SetDefault("FILES_STORAGE_DIR", "./files")
	v.SetDefault("FILES_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("FILES_SIGNED_URL_SECRET", "dev_files_secret")
	v.SetDefault("FILES_SIGNED_URL_TTL", "15m")
	v.SetDefault("FILES_RETENTION", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
