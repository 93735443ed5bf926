package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Provider ProviderConfig
	Dispatch DispatchConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ProviderConfig struct {
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string
	SendgridAPIKey    string
	SendgridFromEmail string
	// HomeRegion is the ISO country code used to decide whether an sms
	// recipient counts as international.
	HomeRegion string
	// TransmittedSender is the fixed identity string stamped on every
	// broadcast event.
	TransmittedSender string
}

type DispatchConfig struct {
	MaxRetries int
	// SimulatedRecipients never reach a real provider; their sends are
	// routed through the response simulation path.
	SimulatedRecipients []string
	// SendingTimeout is how long a notification may sit in "sending"
	// before the janitor sweeps it to technical-failure.
	SendingTimeout time.Duration
	JanitorSpec    string
}

// LoadConfig loads configuration from environment variables.
// A local .env file is honoured when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "govalert"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_BROADCAST_TOPIC", "broadcast-events"),
		},
		Provider: ProviderConfig{
			TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFromNumber:  getEnv("TWILIO_FROM_NUMBER", ""),
			SendgridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
			SendgridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
			HomeRegion:        getEnv("HOME_REGION", "GB"),
			TransmittedSender: getEnv("TRANSMITTED_SENDER", "alerts.govalert.service.gov.uk"),
		},
		Dispatch: DispatchConfig{
			MaxRetries:          getEnvAsInt("DISPATCH_MAX_RETRIES", 5),
			SimulatedRecipients: getEnvAsSlice("SIMULATED_RECIPIENTS", []string{"+447700900000", "simulate-delivered@notifications.service.gov.uk"}),
			SendingTimeout:      getEnvAsDuration("SENDING_TIMEOUT", 4*time.Hour),
			JanitorSpec:         getEnv("JANITOR_CRON_SPEC", "@every 5m"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
