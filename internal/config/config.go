package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultHMACSecret signs tokens when AUTH_HMAC_SECRET is unset. It is
// refused in production mode.
const DefaultHMACSecret = "dev-secret-change-me"

type Config struct {
	HTTPAddr string

	DBDriver string // memory|sqlite|postgres
	DBDSN    string

	BlobBasePath string
	MaxUploadMB  int64
	ServeUploads bool

	AuthHMACSecret string
	TokenTTL       time.Duration
	AuthRatePerMin int

	CORSOrigins []string

	LogMode string // development|production
	LogFile string

	// SubmissionGrace is added to an exam's duration before the server
	// treats an attempt as timed out.
	SubmissionGrace time.Duration

	// Essays matching a reference answer are graded without review when
	// EssayAutoAccept is set, within EssayMaxEdit rune edits.
	EssayAutoAccept bool
	EssayMaxEdit    int
}

// Production reports whether LOG_MODE selects production mode.
func (c Config) Production() bool {
	return strings.EqualFold(c.LogMode, "production") || strings.EqualFold(c.LogMode, "prod")
}

// UsesDefaultSecret reports whether tokens would be signed with DefaultHMACSecret.
func (c Config) UsesDefaultSecret() bool {
	return c.AuthHMACSecret == DefaultHMACSecret
}

// Validate rejects settings that are unsafe to serve with.
func (c Config) Validate() error {
	if c.Production() && c.UsesDefaultSecret() {
		return errors.New("AUTH_HMAC_SECRET must be set in production mode")
	}
	return nil
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		BlobBasePath:    envOr("BLOB_BASE_PATH", "./data"),
		MaxUploadMB:     int64(envInt("MAX_UPLOAD_MB", 10)),
		ServeUploads:    envBool("SERVE_UPLOADS", true),
		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", DefaultHMACSecret),
		TokenTTL:        envDuration("TOKEN_TTL", 7*24*time.Hour),
		AuthRatePerMin:  envInt("AUTH_RATE_PER_MIN", 30),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		LogMode:         envOr("LOG_MODE", "development"),
		LogFile:         os.Getenv("LOG_FILE"),
		SubmissionGrace: envDuration("SUBMISSION_GRACE", 30*time.Second),
		EssayAutoAccept: envBool("ESSAY_AUTO_ACCEPT", false),
		EssayMaxEdit:    envInt("ESSAY_MAX_EDIT", 0),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return n
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
