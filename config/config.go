// config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Environment string
	Port        string
	Version     string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTTTL      time.Duration

	// Firebase Config
	FirebaseCredentials string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	SMSPerSecond      int

	// SendGrid Config
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	// Emergency hotline that receives the services notification
	EmergencyHotlineNumber string

	// Orchestrator timing
	LocationTimeout          time.Duration
	HotlineLocationGrace     time.Duration
	LocationTrackingInterval time.Duration
	PositionMaxAge           time.Duration
	NotifyFanoutTimeout      time.Duration
	FacilityConcurrency      int
	CountdownCadence         time.Duration

	// Wizard defaults
	DefaultLanguage     string
	DefaultAudioEnabled bool

	// Session housekeeping
	SessionIdleTTL      time.Duration
	SessionReapInterval time.Duration

	// App Settings
	RateLimitRequest int
	RateLimitWindow  int // minutes
	SeedFacilities   bool
	FacilityRadiusKm float64
	CORSOrigins      []string
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/lifeline"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		JWTTTL:      getEnvAsDuration("JWT_TTL", 15*time.Minute),

		// Firebase
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		// Twilio
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
		SMSPerSecond:      getEnvAsInt("SMS_PER_SECOND", 5),

		// SendGrid
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "alerts@lifeline.app"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Lifeline Emergency"),

		EmergencyHotlineNumber: getEnv("EMERGENCY_HOTLINE_NUMBER", ""),

		LocationTimeout:          getEnvAsDuration("LOCATION_TIMEOUT", 15*time.Second),
		HotlineLocationGrace:     getEnvAsDuration("HOTLINE_LOCATION_GRACE", 3*time.Second),
		LocationTrackingInterval: getEnvAsDuration("LOCATION_TRACKING_INTERVAL", 10*time.Second),
		PositionMaxAge:           getEnvAsDuration("POSITION_MAX_AGE", 2*time.Minute),
		NotifyFanoutTimeout:      getEnvAsDuration("NOTIFY_FANOUT_TIMEOUT", 20*time.Second),
		FacilityConcurrency:      getEnvAsInt("FACILITY_NOTIFY_CONCURRENCY", 3),
		CountdownCadence:         getEnvAsDuration("COUNTDOWN_CADENCE", time.Second),

		DefaultLanguage:     getEnv("DEFAULT_LANGUAGE", "en"),
		DefaultAudioEnabled: getEnvAsBool("DEFAULT_AUDIO_ENABLED", true),

		SessionIdleTTL:      getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
		SessionReapInterval: getEnvAsDuration("SESSION_REAP_INTERVAL", 5*time.Minute),

		RateLimitRequest: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:  getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1),
		SeedFacilities:   getEnvAsBool("SEED_FACILITIES", false),
		FacilityRadiusKm: getEnvAsFloat("FACILITY_RADIUS_KM", 25),
		CORSOrigins:      getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000", "https://lifeline.app"}),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Warnf("Invalid REDIS_URL, falling back to localhost: %v", err)
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	client := redis.NewClient(opt)
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		logrus.Warnf("Ignoring invalid duration %s=%q", key, value)
	}
	return defaultValue
}
