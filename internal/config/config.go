package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env     string // dev / production
	AppName string
	//HTTP
	HTTPAddr string
	// Origins allowed to send cookie-authenticated POSTs. Empty disables the check.
	AllowedOrigins []string
	//Auth / Security
	JWTSecret        string
	JWTRefreshSecret string // optional, falls back to JWTSecret
	JWTIssuer        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	BcryptCost       int

	// Datastore: memory | postgres | mongo
	Store         string
	DBAddr        string
	DBDebug       bool
	DBAutoMigrate bool
	MongoURI      string
	MongoDB       string

	// Profile cache (optional)
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration

	// Notifier: log | smtp | rabbitmq
	Notifier       string
	RabbitURL      string
	RabbitExchange string
	SMTP           SMTPConfig

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	MaxBodyBytes     int

	// One-time token flows (email verify / password reset)
	VerifyEmailBaseURL    string
	PasswordResetBaseURL  string
	VerifyEmailTokenTTL   time.Duration
	PasswordResetTokenTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
	Insecure bool
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func Load() (*Config, error) {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		AppName:        getEnv("APP_NAME", "Marketplace"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":5000"),
		JWTIssuer:      getEnv("JWT_ISSUER", "marketplace-auth"),
		Store:          strings.ToLower(getEnv("STORE", "memory")),
		Notifier:       strings.ToLower(getEnv("NOTIFIER", "log")),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "auth.notifications"),
		MongoDB:        getEnv("MONGO_DB", "marketplace"),
	}
	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	cfg.JWTRefreshSecret = os.Getenv("JWT_REFRESH_SECRET")

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}

	// Links: the raw token is appended, so these must end where the token goes.
	cfg.VerifyEmailBaseURL = getEnv("VERIFY_EMAIL_BASE_URL", "http://localhost:5000/auth/verify-email/")
	if err := validateBaseURL("VERIFY_EMAIL_BASE_URL", cfg.VerifyEmailBaseURL); err != nil {
		return nil, err
	}
	cfg.PasswordResetBaseURL = getEnv("PASSWORD_RESET_BASE_URL", "http://localhost:5173/reset-password/")
	if err := validateBaseURL("PASSWORD_RESET_BASE_URL", cfg.PasswordResetBaseURL); err != nil {
		return nil, err
	}

	// One-time token TTLs
	if cfg.VerifyEmailTokenTTL, err = getDuration("VERIFY_EMAIL_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTokenTTL, err = getDuration("PASSWORD_RESET_TOKEN_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	// Datastore. Fail fast here to avoid starting against the wrong backend.
	switch cfg.Store {
	case "memory":
		if cfg.IsProduction() {
			return nil, fmt.Errorf("STORE=memory is not allowed in production: accounts would not survive a restart")
		}
	case "postgres":
		cfg.DBAddr = os.Getenv("DB_ADDR")
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
		if err := validatePostgresDSN(cfg.DBAddr); err != nil {
			return nil, err
		}
		if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
			return nil, err
		}
		if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", true); err != nil {
			return nil, err
		}
	case "mongo":
		cfg.MongoURI = os.Getenv("MONGO_URI")
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("missing required env var: MONGO_URI")
		}
	default:
		return nil, fmt.Errorf("invalid STORE %q: want memory, postgres or mongo", cfg.Store)
	}

	// Redis is optional; without it the profile cache is off.
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ProfileCacheTTL, err = getDuration("PROFILE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	switch cfg.Notifier {
	case "log":
		if cfg.IsProduction() {
			return nil, fmt.Errorf("NOTIFIER=log is not allowed in production: verification and reset emails would never be sent")
		}
	case "rabbitmq":
		cfg.RabbitURL = os.Getenv("RABBIT_URL")
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	case "smtp":
		if cfg.SMTP, err = loadSMTP(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid NOTIFIER %q: want log, smtp or rabbitmq", cfg.Notifier)
	}

	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	//Timeout values are optional and have a default value if not
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxBodyBytes, err = getInt("REQUEST_BODY_MAX_SIZE", 1<<20); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadSMTP() (SMTPConfig, error) {
	s := SMTPConfig{
		Host:     os.Getenv("EMAIL_HOST"),
		Username: os.Getenv("EMAIL_USERNAME"),
		Password: os.Getenv("EMAIL_PASSWORD"),
		From:     os.Getenv("EMAIL_FROM"),
		FromName: getEnv("EMAIL_FROM_NAME", "Marketplace"),
	}
	if s.Host == "" {
		return s, fmt.Errorf("missing required env var: EMAIL_HOST")
	}
	if s.From == "" {
		return s, fmt.Errorf("missing required env var: EMAIL_FROM")
	}
	var err error
	if s.Port, err = getInt("EMAIL_PORT", 587); err != nil {
		return s, err
	}
	if s.Timeout, err = getDuration("EMAIL_TIMEOUT", 10*time.Second); err != nil {
		return s, err
	}
	if s.Insecure, err = getBool("EMAIL_INSECURE", false); err != nil {
		return s, err
	}
	return s, nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("invalid DB_ADDR scheme %q", u.Scheme)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("DB_ADDR must name a database")
	}
	return nil
}

func validateBaseURL(key, v string) error {
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	if !strings.HasSuffix(v, "/") && !strings.HasSuffix(v, "=") {
		return fmt.Errorf("%s must end with `/` or `=` because the token is appended", key)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
