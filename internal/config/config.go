package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Политики обработки повторного отзыва (document_id, user_id).
const (
	FeedbackPolicyRetry  = "retry"
	FeedbackPolicyReject = "reject"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	// Управляемый бэкенд (auth + storage)
	BackendURL     string
	BackendAnonKey string
	JWTSecret      string
	BackendTimeout time.Duration

	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Log      string
	LogLevel string
	Env      string // dev|prod

	AuthThrottleInterval time.Duration
	AuthCacheTTL         time.Duration

	FeedbackConflictPolicy string
	FeedbackMaxAttempts    int
	FeedbackRetryDelay     time.Duration

	AllowedEmailDomain string
	MaxLoginAttempts   int
	LoginBlockTime     time.Duration

	SiteURL string
}

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует, чтобы не зависеть от logger.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	backendURL := strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/")

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    def(os.Getenv("DB_NAME"), "postgres"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "require"),

		BackendURL:     backendURL,
		BackendAnonKey: strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		JWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		BackendTimeout: parseDuration(os.Getenv("BACKEND_TIMEOUT"), 10*time.Second),

		StorageEndpoint:  def(os.Getenv("STORAGE_S3_ENDPOINT"), backendURL+"/storage/v1/s3"),
		StorageRegion:    def(os.Getenv("STORAGE_REGION"), "us-east-1"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY_ID"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_ACCESS_KEY"),
		StorageBucket:    def(os.Getenv("STORAGE_BUCKET"), "documents"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       parseInt(os.Getenv("REDIS_DB"), 0),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		AuthThrottleInterval: parseDuration(os.Getenv("AUTH_THROTTLE_INTERVAL"), time.Second),
		AuthCacheTTL:         parseDuration(os.Getenv("AUTH_CACHE_TTL"), time.Minute),

		FeedbackConflictPolicy: strings.ToLower(def(os.Getenv("FEEDBACK_CONFLICT_POLICY"), FeedbackPolicyRetry)),
		FeedbackMaxAttempts:    parseInt(os.Getenv("FEEDBACK_MAX_ATTEMPTS"), 3),
		FeedbackRetryDelay:     parseDuration(os.Getenv("FEEDBACK_RETRY_DELAY"), 100*time.Millisecond),

		AllowedEmailDomain: strings.ToLower(strings.TrimSpace(os.Getenv("ALLOWED_EMAIL_DOMAIN"))),
		MaxLoginAttempts:   parseInt(os.Getenv("MAX_LOGIN_ATTEMPTS"), 5),
		LoginBlockTime:     parseDuration(os.Getenv("LOGIN_BLOCK_TIME"), 15*time.Minute),

		SiteURL: strings.TrimRight(os.Getenv("SITEURL"), "/"),
	}

	return cfg, nil
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	// Без адреса бэкенда и публичного ключа клиент не собрать
	if c.BackendURL == "" || c.BackendAnonKey == "" {
		return nil, fmt.Errorf("backend is not configured (SUPABASE_URL/SUPABASE_ANON_KEY)")
	}

	if c.DbHost == "" || c.DbUser == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER)")
	}

	switch c.FeedbackConflictPolicy {
	case FeedbackPolicyRetry, FeedbackPolicyReject:
	default:
		return nil, fmt.Errorf("unknown FEEDBACK_CONFLICT_POLICY %q", c.FeedbackConflictPolicy)
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		warnings = append(warnings, "SUPABASE_JWT_SECRET is empty, tokens are checked only remotely")
	}

	if c.StorageAccessKey == "" || c.StorageSecretKey == "" {
		warnings = append(warnings, "storage S3 credentials are not set, image upload is disabled")
	}

	if c.AllowedEmailDomain == "" {
		warnings = append(warnings, "ALLOWED_EMAIL_DOMAIN is empty, sign-up is open to any e-mail")
	}

	if c.RedisAddr == "" {
		warnings = append(warnings, "REDIS_ADDR is empty, login attempts are kept in memory")
	}

	return warnings, nil
}

// GetDSN — полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe — DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// AuthURL — базовый адрес auth API бэкенда.
func (c *Config) AuthURL() string { return c.BackendURL + "/auth/v1" }

// PublicObjectURL — базовый адрес публичных объектов хранилища.
func (c *Config) PublicObjectURL() string { return c.BackendURL + "/storage/v1/object/public" }

func parseDuration(v string, d time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return d
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return d
	}
	return parsed
}

func parseInt(v string, d int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}
