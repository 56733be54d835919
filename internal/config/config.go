package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Cinema   CinemaConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers  []string
	Topics   TopicConfig
	MockMode bool
	Enabled  bool
}

type TopicConfig struct {
	BookingRecorded    string
	PaymentToggled     string
	BookingsNormalized string
	MovieDeleted       string
}

// CinemaConfig carries the seating model: a uniform per-showtime capacity
// and the default showtime labels used when a movie is added without its own.
type CinemaConfig struct {
	SeatsTotal     int
	DefaultTimings []string
}

type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	AdminEmail     string
	AdminPassword  string
	QRTicketSecret string
	BcryptCost     int
}

func Load() *Config {
	kafkaEnabled := getEnvBool("KAFKA_ENABLED", true)
	mockMode := getEnvBool("KAFKA_MOCK_MODE", false)

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "booking_user"),
			Password:     getEnv("DB_PASSWORD", "booking_pass"),
			Database:     getEnv("DB_NAME", "booking"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled:  kafkaEnabled,
			MockMode: mockMode,
			Topics: TopicConfig{
				BookingRecorded:    getEnv("KAFKA_TOPIC_BOOKING_RECORDED", "booking-recorded"),
				PaymentToggled:     getEnv("KAFKA_TOPIC_PAYMENT_TOGGLED", "booking-payment-toggled"),
				BookingsNormalized: getEnv("KAFKA_TOPIC_BOOKINGS_NORMALIZED", "bookings-normalized"),
				MovieDeleted:       getEnv("KAFKA_TOPIC_MOVIE_DELETED", "movie-deleted"),
			},
		},
		Cinema: CinemaConfig{
			SeatsTotal: getEnvInt("SEATS_TOTAL", 60),
			DefaultTimings: []string{
				getEnv("TIMING_1", "9:00 AM"),
				getEnv("TIMING_2", "12:00 PM"),
				getEnv("TIMING_3", "3:00 PM"),
				getEnv("TIMING_4", "6:00 PM"),
				getEnv("TIMING_5", "9:00 PM"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
			TokenTTL:       time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 120)) * time.Minute,
			AdminEmail:     getEnv("ADMIN_EMAIL", "admin@neonflix.com"),
			AdminPassword:  getEnv("ADMIN_PASSWORD", "neonflix"),
			QRTicketSecret: getEnv("QR_TICKET_SECRET", "dev-qr-secret"),
			BcryptCost:     getEnvInt("BCRYPT_COST", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
