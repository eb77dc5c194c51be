package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"staybook/internal/domain/shared/money"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env      string
	HTTPAddr string

	StoreDriver string
	MongoURI    string
	MongoDB     string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	IdempotencyTTL time.Duration
	SessionTTL     time.Duration

	S3Endpoint       string
	S3PublicEndpoint string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3UseSSL         bool
	ContractsDir     string
	ContractURLTTL   time.Duration
	PublicBaseURL    string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPTLS      bool
	MailFrom     string
	OwnerEmail   string

	AdminEmail    string
	AdminPassword string

	BusinessTZ         *time.Location
	Currency           string
	ParkingWeeklyCents int64
	SweepSchedule      string
	NotifyWorkers      int
	ApartmentsFixtures string
	CORSOrigins        []string
}

// Load reads .env files (when present) and then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "staybook"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "staybook.db"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3PublicEndpoint:   os.Getenv("S3_PUBLIC_ENDPOINT"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           getEnv("S3_BUCKET", "staybook-contracts"),
		ContractsDir:       getEnv("CONTRACTS_DIR", "var/contracts"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		MailFrom:           getEnv("MAIL_FROM", "reservations@staybook.local"),
		OwnerEmail:         os.Getenv("OWNER_EMAIL"),
		AdminEmail:         os.Getenv("ADMIN_EMAIL"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		Currency:           strings.ToUpper(getEnv("CURRENCY", money.DefaultCurrency)),
		SweepSchedule:      getEnv("SWEEP_SCHEDULE", "0 9 * * *"),
		ApartmentsFixtures: os.Getenv("APARTMENTS_FIXTURES"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:3000"))

	var err error
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", 12*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ContractURLTTL, err = parseDurationEnv("CONTRACT_URL_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	for _, raw := range splitList(getEnv("RETRY_BACKOFF", "1s,5s,30s")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.SMTPTLS, err = parseBoolEnv("SMTP_TLS", true); err != nil {
		return Config{}, err
	}
	if cfg.SMTPPort, err = parseIntEnv("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if cfg.NotifyWorkers, err = parseIntEnv("NOTIFY_WORKERS", 2); err != nil {
		return Config{}, err
	}
	parking, err := parseIntEnv("PARKING_WEEKLY_CENTS", 8000)
	if err != nil {
		return Config{}, err
	}
	cfg.ParkingWeeklyCents = int64(parking)

	tz := getEnv("BUSINESS_TZ", "Europe/Paris")
	if cfg.BusinessTZ, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("invalid BUSINESS_TZ %q: %w", tz, err)
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for STORE_DRIVER=mongo")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

// ParkingWeekly is the site-wide parking surcharge for apartments without their own.
func (c Config) ParkingWeekly() money.Money {
	return money.Money{Amount: c.ParkingWeeklyCents, Currency: c.Currency}
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
