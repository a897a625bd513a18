package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MASTERY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("MASTERY_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// DatabaseMaxConns caps the pgx pool size. Zero keeps the pgxpool default.
func DatabaseMaxConns() int32 {
	v, err := strconv.Atoi(os.Getenv("DB_MAX_CONNS"))
	if err != nil || v < 0 {
		return 0
	}
	return int32(v)
}

// APIKeys returns the comma separated keys accepted on /v1 routes. None
// disables auth.
func APIKeys() []string {
	var keys []string
	for _, k := range strings.Split(os.Getenv("API_KEY"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// AutoMigrate reports whether the schema should be created on startup.
// Defaults to true.
func AutoMigrate() bool {
	v, err := strconv.ParseBool(os.Getenv("AUTO_MIGRATE"))
	if err != nil {
		return true
	}
	return v
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func DueThreshold() float64 {
	return probability("DUE_THRESHOLD", 0.72)
}

func MasteredThreshold() float64 {
	return probability("MASTERED_THRESHOLD", 0.95)
}

func SweepInterval() time.Duration {
	return duration("SWEEP_INTERVAL", time.Hour)
}

func TunerInterval() time.Duration {
	return duration("TUNER_INTERVAL", 6*time.Hour)
}

// DefaultParameters builds the deployment-wide parameter set from
// DEFAULT_P_INIT, DEFAULT_P_TRANSIT, DEFAULT_SLIP, DEFAULT_GUESS and
// DEFAULT_FORGET. DEFAULT_FORGET=none disables decay. Values are clamped.
func DefaultParameters() domain.ParameterSet {
	p := domain.DefaultParameters()
	p.PInit = float64Env("DEFAULT_P_INIT", p.PInit)
	p.PTransit = float64Env("DEFAULT_P_TRANSIT", p.PTransit)
	p.Slip = float64Env("DEFAULT_SLIP", p.Slip)
	p.Guess = float64Env("DEFAULT_GUESS", p.Guess)

	switch raw := strings.TrimSpace(os.Getenv("DEFAULT_FORGET")); {
	case strings.EqualFold(raw, "none"):
		p.Forget = nil
	case raw != "":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			p.Forget = &f
		}
	}
	return p.Clamp()
}

// probability reads an exclusive (0, 1) value, falling back on anything else.
func probability(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 || v >= 1 {
		return fallback
	}
	return v
}

func float64Env(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
