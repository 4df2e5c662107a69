package config

import (
	"strings"
	"time"

	"fitpass_backend/pkg/utils"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
	Timezone       string

	Database DatabaseConfig

	JWTSecret       string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	PlansFile       string
	CancelWindow    time.Duration
	BillingCronSpec string

	Redis     RedisConfig
	Geocoding GeocodingConfig
	Stripe    StripeConfig
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GeocodingConfig struct {
	Primary          string // "google" or "locationiq"
	GoogleAPIKey     string
	LocationIQAPIKey string
	CacheTTL         time.Duration
	Timeout          time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// Enabled reports whether billing calls can be made.
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		utils.LogDebug("No .env file loaded", map[string]interface{}{"reason": err.Error()})
	}

	origins := utils.SplitCSV(utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:8081,http://localhost:19006"))

	return Config{
		Port:           utils.Getenv("PORT", "8080"),
		AllowedOrigins: origins,
		LogLevel:       utils.Getenv("LOG_LEVEL", "info"),
		LogFormat:      utils.Getenv("LOG_FORMAT", "console"),
		Timezone:       utils.Getenv("TIMEZONE", "Europe/Stockholm"),
		Database: DatabaseConfig{
			Host:          utils.Getenv("DB_HOST", "localhost"),
			Port:          utils.Getenv("DB_PORT", "5432"),
			User:          utils.Getenv("DB_USER", "fitpass"),
			Password:      utils.Getenv("DB_PASSWORD", "fitpass"),
			Name:          utils.Getenv("DB_NAME", "fitpass"),
			SSLMode:       utils.Getenv("DB_SSLMODE", "disable"),
			MaxOpenConns:  utils.GetenvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  utils.GetenvInt("DB_MAX_IDLE_CONNS", 25),
			RunMigrations: utils.GetenvBool("DB_RUN_MIGRATIONS", true),
		},
		JWTSecret:       utils.Getenv("JWT_SECRET", ""),
		JWTAccessTTL:    utils.GetenvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:   utils.GetenvDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
		RateLimitRPS:    utils.GetenvInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst:  utils.GetenvInt("RATE_LIMIT_BURST", 20),
		PlansFile:       utils.Getenv("PLANS_FILE", ""),
		CancelWindow:    utils.GetenvDuration("BOOKING_CANCELLATION_WINDOW", time.Hour),
		BillingCronSpec: utils.Getenv("BILLING_CRON_SPEC", "@every 15m"),
		Redis: RedisConfig{
			Addr:     utils.Getenv("REDIS_ADDR", ""),
			Password: utils.Getenv("REDIS_PASSWORD", ""),
			DB:       utils.GetenvInt("REDIS_DB", 0),
		},
		Geocoding: GeocodingConfig{
			Primary:          strings.ToLower(utils.Getenv("GEOCODING_PRIMARY", "google")),
			GoogleAPIKey:     utils.Getenv("GOOGLE_MAPS_API_KEY", ""),
			LocationIQAPIKey: utils.Getenv("LOCATIONIQ_API_KEY", ""),
			CacheTTL:         utils.GetenvDuration("GEOCODING_CACHE_TTL", 24*time.Hour),
			Timeout:          utils.GetenvDuration("GEOCODING_TIMEOUT", 5*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey:     utils.Getenv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: utils.Getenv("STRIPE_WEBHOOK_SECRET", ""),
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		utils.LogWarn(err, "Unknown TIMEZONE, using UTC", map[string]interface{}{"timezone": c.Timezone})
		return time.UTC
	}
	return loc
}
