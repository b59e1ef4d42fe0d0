// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "GRIEVANCE_"

// insecureDevSecret is used when no JWT secret is configured on a non-HTTPS
// deployment.
const insecureDevSecret = "insecure-dev-only-jwt-secret-do-not-use"

// Config holds the process configuration.
type Config struct {
	ListenAddr     string
	DBPath         string
	BaseURL        string
	RequestTimeout time.Duration

	JWTSecret         string
	InsecureJWTSecret bool // true when the development fallback is in use

	TrackingPrefix string
	MaxIDAttempts  int

	SendGridKey   string
	FromEmail     string
	FromName      string
	EmailSandbox  bool
	NotifyTimeout time.Duration

	MediaDir string
	S3Bucket string
	S3Region string
	S3Prefix string

	RedisURL          string
	AnalyticsCacheTTL time.Duration

	EscalationInterval time.Duration

	IMAPServer   string
	IMAPUsername string
	IMAPPassword string
	IMAPInterval time.Duration

	RateLimit       float64 // requests per second per IP
	RateBurst       int
	FilingRateLimit float64 // complaint submissions per second per IP
	FilingBurst     int
}

// Load reads files (default ".env") and then the process environment.
// Process environment values win. Missing files are skipped.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	fileEnv := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := fileEnv[k]; !ok {
				fileEnv[k] = v
			}
		}
	}
	return FromEnv(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileEnv[key]
	})
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}
	cfg := &Config{
		ListenAddr: p.str("LISTEN", ":8080"),
		DBPath:     p.str("DB_PATH", "./grievance.db"),
		BaseURL:    strings.TrimSuffix(p.str("BASE_URL", "http://localhost:8080"), "/"),

		RequestTimeout: p.duration("REQUEST_TIMEOUT", 30*time.Second),

		JWTSecret: p.str("JWT_SECRET", ""),

		TrackingPrefix: p.str("TRACKING_PREFIX", "GRV"),
		MaxIDAttempts:  p.integer("MAX_ID_ATTEMPTS", 8),

		SendGridKey:   p.str("SENDGRID_KEY", ""),
		FromEmail:     p.str("FROM_EMAIL", "noreply@grievance.example.gov"),
		FromName:      p.str("FROM_NAME", "Grievance Desk"),
		EmailSandbox:  p.boolean("EMAIL_SANDBOX", false),
		NotifyTimeout: p.duration("NOTIFY_TIMEOUT", 10*time.Second),

		MediaDir: p.str("MEDIA_DIR", "./uploads"),
		S3Bucket: p.str("S3_BUCKET", ""),
		S3Region: p.str("S3_REGION", ""),
		S3Prefix: p.str("S3_PREFIX", "complaints/"),

		RedisURL:          p.str("REDIS_URL", ""),
		AnalyticsCacheTTL: p.duration("ANALYTICS_CACHE_TTL", 5*time.Minute),

		EscalationInterval: p.duration("ESCALATION_INTERVAL", time.Hour),

		IMAPServer:   p.str("IMAP_SERVER", ""),
		IMAPUsername: p.str("IMAP_USERNAME", ""),
		IMAPPassword: p.str("IMAP_PASSWORD", ""),
		IMAPInterval: p.duration("IMAP_INTERVAL", 5*time.Minute),

		RateLimit:       p.float("RATE_LIMIT", 10),
		RateBurst:       p.integer("RATE_BURST", 40),
		FilingRateLimit: p.float("FILING_RATE_LIMIT", 0.1),
		FilingBurst:     p.integer("FILING_BURST", 5),
	}
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}

	if cfg.JWTSecret == "" || cfg.JWTSecret == "change-me-in-production" {
		if strings.HasPrefix(cfg.BaseURL, "https://") {
			return nil, fmt.Errorf("%sJWT_SECRET must be set to a strong random value in production (try: openssl rand -hex 32)", Prefix)
		}
		cfg.JWTSecret = insecureDevSecret
		cfg.InsecureJWTSecret = true
	}
	if cfg.MaxIDAttempts < 1 {
		return nil, fmt.Errorf("%sMAX_ID_ATTEMPTS must be at least 1", Prefix)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("%sREQUEST_TIMEOUT must be positive", Prefix)
	}
	if cfg.IMAPServer != "" && cfg.IMAPUsername == "" {
		return nil, fmt.Errorf("%sIMAP_USERNAME is required when %sIMAP_SERVER is set", Prefix, Prefix)
	}
	return cfg, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, fallback string) string {
	if v := strings.TrimSpace(p.getenv(Prefix + key)); v != "" {
		return v
	}
	return fallback
}

func (p *parser) integer(key string, fallback int) int {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
		return fallback
	}
	return f
}

func (p *parser) boolean(key string, fallback bool) bool {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
		return fallback
	}
	return d
}
