package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the process configuration and the hot-reloaded company profile.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCompanyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	AuthCookieSecure bool

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRatePerSec float64
	LoginBurst      int

	ReconcileInterval      time.Duration
	WorkspaceSweepInterval time.Duration
	NotificationInboxSize  int
	DashboardRecentLimit   int

	CompanyConfigPath string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:                getenv("APP_SERVICE", "invoicenexus"),
		AppVersion:             getenv("APP_VERSION", "0.1.0"),
		Environment:            environment,
		HTTPAddr:               getenv("HTTP_ADDR", ":8080"),
		AuthCookieSecure:       authCookieSecure,
		OTLPEndpoint:           getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:                 strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:                 getenv("DATABASE_HOST", "localhost"),
		DBPort:                 getenv("DATABASE_PORT", "5432"),
		DBName:                 getenv("DATABASE_NAME", "invoicenexus"),
		DBUser:                 getenv("DATABASE_USER", "postgres"),
		DBPassword:             getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:              getenv("DATABASE_SSLMODE", "disable"),
		DBPath:                 getenv("DATABASE_PATH", "invoicenexus.db"),
		DBMaxIdleConn:          getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:          getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:      getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:      getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RedisAddr:              strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:          getenv("REDIS_PASSWORD", ""),
		RedisDB:                getenvInt("REDIS_DB", 0),
		LoginRatePerSec:        getenvFloat("LOGIN_RATE_PER_SEC", 0.2),
		LoginBurst:             getenvInt("LOGIN_BURST", 5),
		ReconcileInterval:      getenvDuration("RECONCILE_INTERVAL", 15*time.Minute),
		WorkspaceSweepInterval: getenvDuration("WORKSPACE_SWEEP_INTERVAL", time.Minute),
		NotificationInboxSize:  getenvInt("NOTIFICATION_INBOX_SIZE", 50),
		DashboardRecentLimit:   getenvInt("DASHBOARD_RECENT_LIMIT", 5),
		CompanyConfigPath:      strings.TrimSpace(getenv("COMPANY_CONFIG_PATH", "")),
	}
}

// IsProduction reports whether the process runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
