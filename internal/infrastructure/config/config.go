// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Queue backends
const (
	QueueBackendRedis = "redis"
	QueueBackendMongo = "mongo"
)

// Mail transports
const (
	MailTransportGmail = "gmail"
	MailTransportSMTP  = "smtp"
	MailTransportSES   = "ses"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string `validate:"oneof=debug info warn error"`

	// Server
	Port         string `validate:"required,numeric"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Queue
	QueueBackend   string        `validate:"oneof=redis mongo"`
	QueueKeyPrefix string        `validate:"required"`
	QueueTTL       time.Duration `validate:"gt=0"`

	// Redis
	RedisAddr     string `validate:"required_if=QueueBackend redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// MongoDB
	MongoURI      string `validate:"required_if=QueueBackend mongo"`
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Postgres destination table, optional
	PostgresDSN string

	// Mail
	MailTransport string `validate:"oneof=gmail smtp ses"`
	MailFrom      string `validate:"required"`

	// Gmail API
	GmailClientID     string `validate:"required_if=MailTransport gmail"`
	GmailClientSecret string `validate:"required_if=MailTransport gmail"`
	GmailRefreshToken string `validate:"required_if=MailTransport gmail"`

	// SMTP
	GmailUser string `validate:"required_if=MailTransport smtp"`
	GmailPass string `validate:"required_if=MailTransport smtp"`
	SMTPHost  string `validate:"required_if=MailTransport smtp"`
	SMTPPort  int    `validate:"gt=0,lte=65535"`

	// SES
	AWSRegion           string `validate:"required_if=MailTransport ses"`
	SESConfigurationSet string

	// Flight data API, optional
	FlightAPIURL     string `validate:"omitempty,url"`
	FlightAPIKey     string
	FlightAPITimeout time.Duration

	// Flights
	OriginCode       string `validate:"required,len=3"`
	DestinationCodes []string

	// Dispatch
	DispatchInterval    time.Duration `validate:"gt=0"`
	DispatchLookback    time.Duration `validate:"gte=0"`
	DispatchConcurrency int           `validate:"gt=0"`
	SendTimeout         time.Duration `validate:"gt=0"`
	RetryBaseDelay      time.Duration `validate:"gt=0"`
	RetryMaxDelay       time.Duration `validate:"gtefield=RetryBaseDelay"`
	StaleClaimAfter     time.Duration `validate:"gte=0"`
	DispatchToken       string

	// Metrics
	MetricsNamespace string `validate:"required"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		QueueBackend:   strings.ToLower(getEnv("QUEUE_BACKEND", QueueBackendRedis)),
		QueueKeyPrefix: getEnv("QUEUE_KEY_PREFIX", "jetlag:{arrivals}:"),
		QueueTTL:       getEnvAsDuration("QUEUE_TTL", 72*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "jetlag"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		MailTransport: strings.ToLower(getEnv("MAIL_TRANSPORT", MailTransportSMTP)),
		MailFrom:      getEnv("MAIL_FROM", getEnv("GMAIL_USER", "")),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		GmailUser: getEnv("GMAIL_USER", ""),
		GmailPass: getEnv("GMAIL_PASS", ""),
		SMTPHost:  getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:  getEnvAsInt("SMTP_PORT", 587),

		AWSRegion:           getEnv("AWS_REGION", ""),
		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),

		FlightAPIURL:     getEnv("FLIGHT_API_URL", ""),
		FlightAPIKey:     getEnv("FLIGHT_API_KEY", ""),
		FlightAPITimeout: getEnvAsDuration("FLIGHT_API_TIMEOUT", 5*time.Second),

		OriginCode:       strings.ToUpper(getEnv("ORIGIN_CODE", "HND")),
		DestinationCodes: getEnvAsList("DESTINATION_CODES", []string{"LHR", "CDG", "BER", "AMS", "JFK", "YYZ", "LAX"}),

		DispatchInterval:    getEnvAsDuration("DISPATCH_INTERVAL", time.Minute),
		DispatchLookback:    getEnvAsDuration("DISPATCH_LOOKBACK", 60*time.Minute),
		DispatchConcurrency: getEnvAsInt("DISPATCH_CONCURRENCY", 8),
		SendTimeout:         getEnvAsDuration("SEND_TIMEOUT", 30*time.Second),
		RetryBaseDelay:      getEnvAsDuration("RETRY_BASE_DELAY", time.Minute),
		RetryMaxDelay:       getEnvAsDuration("RETRY_MAX_DELAY", 30*time.Minute),
		StaleClaimAfter:     getEnvAsDuration("STALE_CLAIM_AFTER", 10*time.Minute),
		DispatchToken:       getEnv("DISPATCH_TOKEN", ""),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "jetlag"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for missing or inconsistent values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "72h") or a bare
// number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
