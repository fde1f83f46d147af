package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	DBHost         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPort         string
	DBTimeZone     string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBLogLevel     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	EventsChannel  string
	JWTSecret      string
	LogLevel       string
	LockTTL        time.Duration
	TxTimeout      time.Duration
}

// Load reads an optional .env file, then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the config from the environment only.
func FromEnv() Config {
	return Config{
		Port:           getEnv("PORT", "3000"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBTimeZone:     getEnv("DB_TIMEZONE", "Asia/Jakarta"),
		DBMaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 10),
		DBLogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0),
		EventsChannel:  getEnv("EVENTS_CHANNEL", "ledger-events"),
		JWTSecret:      getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LockTTL:        time.Duration(getInt("LOCK_TTL_SECONDS", 30)) * time.Second,
		TxTimeout:      time.Duration(getInt("TX_TIMEOUT_SECONDS", 15)) * time.Second,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// DSN returns DATABASE_URL when set, otherwise a key/value postgres DSN.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimeZone,
	)
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

// getInt falls back on missing, malformed or negative values.
func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
