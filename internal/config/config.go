package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the taskboard server.
type Config struct {
	Addr            string        `validate:"required"`
	DBPath          string        `validate:"required"`
	DBDriver        string        `validate:"required,oneof=sqlite3 sqlite"`
	LogLevel        string        `validate:"required,oneof=debug info warn error"`
	LogFormat       string        `validate:"required,oneof=text json"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	RateLimit       float64       `validate:"gte=0"`
	RateBurst       int           `validate:"gte=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads flags from args with environment fallbacks. Optional .env.local
// and .env files are loaded first and never override the real environment.
func Load(args []string) (Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	fs := flag.NewFlagSet("taskboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		c        Config
		shutdown string
		rateRaw  string
		burstRaw string
	)
	fs.StringVar(&c.Addr, "addr", EnvOrDefault("TASKBOARD_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&c.DBPath, "db", EnvOrDefault("TASKBOARD_DB_PATH", "data/taskboard.db"), "Path to sqlite database file")
	fs.StringVar(&c.DBDriver, "driver", EnvOrDefault("TASKBOARD_DB_DRIVER", "sqlite3"), "SQL driver: sqlite3 (cgo) or sqlite (pure Go)")
	fs.StringVar(&c.LogLevel, "log-level", EnvOrDefault("TASKBOARD_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", EnvOrDefault("TASKBOARD_LOG_FORMAT", "text"), "Log format: text or json")
	fs.StringVar(&shutdown, "shutdown-timeout", EnvOrDefault("TASKBOARD_SHUTDOWN_TIMEOUT", "5s"), "Graceful shutdown timeout")
	fs.StringVar(&rateRaw, "rate-limit", EnvOrDefault("TASKBOARD_RATE_LIMIT", "0"), "Requests per second per client, 0 disables")
	fs.StringVar(&burstRaw, "rate-burst", EnvOrDefault("TASKBOARD_RATE_BURST", "20"), "Rate limiter burst size")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	var err error
	if c.ShutdownTimeout, err = time.ParseDuration(shutdown); err != nil {
		return Config{}, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	if c.RateLimit, err = strconv.ParseFloat(rateRaw, 64); err != nil {
		return Config{}, fmt.Errorf("invalid rate limit: %w", err)
	}
	if c.RateBurst, err = strconv.Atoi(burstRaw); err != nil {
		return Config{}, fmt.Errorf("invalid rate burst: %w", err)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)

	if err := validate.Struct(&c); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// EnvOrDefault returns the environment variable value or fallback when it is empty.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// NewLogger builds the process logger described by c.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c Config) level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
