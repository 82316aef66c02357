package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort  string
	LogLevel string
	LogJSON  bool

	// Match rules
	PhaseDuration time.Duration
	StrictRoles   bool
	DedupeFinds   bool

	// Session reaping (0 TTL keeps sessions for the process lifetime)
	SessionTTL    time.Duration
	ReapInterval  time.Duration
	FeedInterval  time.Duration
	AllowedOrigin string
	InviteBaseURL string

	// Rate limiting; empty RedisAddr falls back to an in-process limiter
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	APIRateLimit  int
	APIRateWindow time.Duration

	// Optional match history
	DatabaseURL string

	// Optional escrow lookups
	ChainRPCURL    string
	EscrowContract string
}

// DefaultAPIRateLimit is requests per API_RATE_WINDOW_SECONDS per bucket.
// A coordinator polls about 90 times a minute, so this leaves room for
// several players behind one IP on the non-game endpoints.
const DefaultAPIRateLimit = 600

// Load reads the config from env (and .env when present).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:  getString("APP_PORT", "8080"),
		LogLevel: getString("LOG_LEVEL", "info"),
		LogJSON:  getBool("LOG_JSON"),

		PhaseDuration: getSeconds("PHASE_DURATION_SECONDS", 300),
		StrictRoles:   getBool("MATCH_STRICT_ROLES"),
		DedupeFinds:   getBool("MATCH_DEDUPE_FINDS"),

		SessionTTL:    time.Duration(getInt("SESSION_TTL_MINUTES", 0)) * time.Minute,
		ReapInterval:  getSeconds("REAP_INTERVAL_SECONDS", 600),
		FeedInterval:  time.Duration(getInt("FEED_INTERVAL_MS", 1000)) * time.Millisecond,
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		InviteBaseURL: os.Getenv("INVITE_BASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		APIRateLimit:  getInt("API_RATE_LIMIT", DefaultAPIRateLimit),
		APIRateWindow: getSeconds("API_RATE_WINDOW_SECONDS", 60),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		ChainRPCURL:    os.Getenv("CHAIN_RPC_URL"),
		EscrowContract: os.Getenv("ESCROW_CONTRACT"),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

// getInt ignores unparsable and negative values.
func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getSeconds(key string, def int) time.Duration {
	return time.Duration(getInt(key, def)) * time.Second
}
