package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Eligibility EligibilityConfig
	Dashboard   DashboardConfig
	Workflow    WorkflowConfig
	Wallet      WalletConfig
	AdmitCards  AdmitCardConfig
	Analyzer    AnalyzerConfig
	Reminders   ReminderConfig
	BoardResult BoardResultConfig
	Catalog     CatalogConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnectRetries int
	RetryInterval  time.Duration
	AutoMigrate    bool
}

type RedisConfig struct {
	URL         string
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	SingleSession     bool
	AdminInviteCode   string
	PurgeSchedule     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EligibilityConfig tunes the memoized eligibility snapshots.
type EligibilityConfig struct {
	CacheTTL time.Duration
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// WorkflowConfig drives the automated application stage timers.
type WorkflowConfig struct {
	StageInterval        time.Duration
	CompletionDelay      time.Duration
	// RunRetention is how long a finished run stays visible in memory.
	RunRetention         time.Duration
	MarksRequired        int
	DefaultMarksObtained int
}

// WalletConfig controls recharge behaviour.
type WalletConfig struct {
	RechargeDelay       time.Duration
	Presets             []int64
	RechargeDescription string
}

// AdmitCardConfig selects where rendered admit cards are kept.
type AdmitCardConfig struct {
	Backend         string
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Retention       time.Duration
	CleanupSchedule string
	S3              S3Config
}

// S3Config describes an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// AnalyzerConfig configures circular ingestion workers.
type AnalyzerConfig struct {
	Enabled           bool
	WorkerConcurrency int
	WorkerRetries     int
	FetchTimeout      time.Duration
	MaxDocumentBytes  int64
}

// ReminderConfig schedules deadline reminder sweeps.
type ReminderConfig struct {
	Enabled        bool
	Schedule       string
	DeadlineWindow time.Duration
}

// BoardResultConfig points at the education board result site.
type BoardResultConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CatalogConfig references an optional circular seed file.
type CatalogConfig struct {
	SeedFile string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectRetries: v.GetInt("DB_CONNECT_RETRIES"),
		RetryInterval:  parseDuration(v.GetString("DB_RETRY_INTERVAL"), 2*time.Second),
		AutoMigrate:    v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		URL:         v.GetString("REDIS_URL"),
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		DialTimeout: v.GetDuration("REDIS_DIAL_TIMEOUT"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		SingleSession:     v.GetBool("AUTH_SINGLE_SESSION"),
		AdminInviteCode:   v.GetString("AUTH_ADMIN_INVITE_CODE"),
		PurgeSchedule:     v.GetString("AUTH_SESSION_PURGE_SCHEDULE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Eligibility = EligibilityConfig{
		CacheTTL: parseDuration(v.GetString("ELIGIBILITY_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Workflow = WorkflowConfig{
		StageInterval:        parseDuration(v.GetString("WORKFLOW_STAGE_INTERVAL"), 2500*time.Millisecond),
		CompletionDelay:      parseDuration(v.GetString("WORKFLOW_COMPLETION_DELAY"), 1500*time.Millisecond),
		RunRetention:         parseDuration(v.GetString("WORKFLOW_RUN_RETENTION"), 10*time.Minute),
		MarksRequired:        v.GetInt("WORKFLOW_MARKS_REQUIRED"),
		DefaultMarksObtained: v.GetInt("WORKFLOW_DEFAULT_MARKS_OBTAINED"),
	}

	presets := parseAmounts(splitAndTrim(v.GetString("WALLET_PRESETS")))
	if len(presets) == 0 {
		presets = []int64{1000, 2500, 5000, 10000}
	}
	cfg.Wallet = WalletConfig{
		RechargeDelay:       parseDuration(v.GetString("WALLET_RECHARGE_DELAY"), 1500*time.Millisecond),
		Presets:             presets,
		RechargeDescription: v.GetString("WALLET_RECHARGE_DESCRIPTION"),
	}

	cfg.AdmitCards = AdmitCardConfig{
		Backend:         strings.ToLower(v.GetString("ADMIT_CARDS_BACKEND")),
		StorageDir:      v.GetString("ADMIT_CARDS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("ADMIT_CARDS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("ADMIT_CARDS_SIGNED_URL_TTL"), 24*time.Hour),
		Retention:       parseDuration(v.GetString("ADMIT_CARDS_RETENTION"), 30*24*time.Hour),
		CleanupSchedule: v.GetString("ADMIT_CARDS_CLEANUP_SCHEDULE"),
		S3: S3Config{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			Region:    v.GetString("S3_REGION"),
			Bucket:    v.GetString("S3_BUCKET"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
		},
	}

	maxDocument := v.GetInt64("ANALYZER_MAX_DOCUMENT_BYTES")
	if maxDocument <= 0 {
		maxDocument = 20 * 1024 * 1024
	}
	cfg.Analyzer = AnalyzerConfig{
		Enabled:           v.GetBool("ENABLE_ANALYZER"),
		WorkerConcurrency: v.GetInt("ANALYZER_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("ANALYZER_WORKER_RETRIES"),
		FetchTimeout:      parseDuration(v.GetString("ANALYZER_FETCH_TIMEOUT"), 30*time.Second),
		MaxDocumentBytes:  maxDocument,
	}

	cfg.Reminders = ReminderConfig{
		Enabled:        v.GetBool("ENABLE_REMINDERS"),
		Schedule:       v.GetString("REMINDERS_SCHEDULE"),
		DeadlineWindow: parseDuration(v.GetString("REMINDERS_DEADLINE_WINDOW"), 72*time.Hour),
	}

	cfg.BoardResult = BoardResultConfig{
		BaseURL: v.GetString("BOARD_RESULT_BASE_URL"),
		Timeout: parseDuration(v.GetString("BOARD_RESULT_TIMEOUT"), 30*time.Second),
	}

	cfg.Catalog = CatalogConfig{SeedFile: v.GetString("CATALOG_SEED_FILE")}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	devJWTSecret       = "dev_secret"
	devAdmitCardSecret = "dev_admit_cards_secret"
)

// validate refuses development secrets in production and catches settings the
// services cannot run with.
func (c *Config) validate() error {
	var errs []error
	if c.Env == EnvProduction {
		if c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be set in production"))
		}
		if c.AdmitCards.SignedURLSecret == "" || c.AdmitCards.SignedURLSecret == devAdmitCardSecret {
			errs = append(errs, errors.New("ADMIT_CARDS_SIGNED_URL_SECRET must be set in production"))
		}
	}
	if c.AdmitCards.Backend == "s3" && c.AdmitCards.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required for the s3 admit card backend"))
	}
	if c.Analyzer.WorkerConcurrency < 1 {
		errs = append(errs, fmt.Errorf("ANALYZER_WORKER_CONCURRENCY must be positive, got %d", c.Analyzer.WorkerConcurrency))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "admission_agent")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_RETRIES", 10)
	v.SetDefault("DB_RETRY_INTERVAL", "2s")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("AUTH_SINGLE_SESSION", false)
	v.SetDefault("AUTH_ADMIN_INVITE_CODE", "")
	v.SetDefault("AUTH_SESSION_PURGE_SCHEDULE", "0 0 4 * * *")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ELIGIBILITY_CACHE_TTL", "10m")
	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("WORKFLOW_STAGE_INTERVAL", "2500ms")
	v.SetDefault("WORKFLOW_COMPLETION_DELAY", "1500ms")
	v.SetDefault("WORKFLOW_RUN_RETENTION", "10m")
	v.SetDefault("WORKFLOW_MARKS_REQUIRED", 60)
	v.SetDefault("WORKFLOW_DEFAULT_MARKS_OBTAINED", 70)

	v.SetDefault("WALLET_RECHARGE_DELAY", "1500ms")
	v.SetDefault("WALLET_PRESETS", "1000,2500,5000,10000")
	v.SetDefault("WALLET_RECHARGE_DESCRIPTION", "Wallet recharge via bKash")

	v.SetDefault("ADMIT_CARDS_BACKEND", "local")
	v.SetDefault("ADMIT_CARDS_STORAGE_DIR", "./admit-cards")
	v.SetDefault("ADMIT_CARDS_SIGNED_URL_SECRET", devAdmitCardSecret)
	v.SetDefault("ADMIT_CARDS_SIGNED_URL_TTL", "24h")
	v.SetDefault("ADMIT_CARDS_RETENTION", "720h")
	v.SetDefault("ADMIT_CARDS_CLEANUP_SCHEDULE", "0 30 3 * * *")
	v.SetDefault("S3_REGION", "us-east-1")

	v.SetDefault("ENABLE_ANALYZER", true)
	v.SetDefault("ANALYZER_WORKER_CONCURRENCY", 2)
	v.SetDefault("ANALYZER_WORKER_RETRIES", 2)
	v.SetDefault("ANALYZER_FETCH_TIMEOUT", "30s")
	v.SetDefault("ANALYZER_MAX_DOCUMENT_BYTES", 20*1024*1024)

	v.SetDefault("ENABLE_REMINDERS", false)
	v.SetDefault("REMINDERS_SCHEDULE", "0 0 8 * * *")
	v.SetDefault("REMINDERS_DEADLINE_WINDOW", "72h")

	v.SetDefault("BOARD_RESULT_BASE_URL", "http://www.educationboardresults.gov.bd")
	v.SetDefault("BOARD_RESULT_TIMEOUT", "30s")

	v.SetDefault("CATALOG_SEED_FILE", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseAmounts(raw []string) []int64 {
	amounts := make([]int64, 0, len(raw))
	for _, item := range raw {
		n, err := strconv.ParseInt(item, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		amounts = append(amounts, n)
	}
	return amounts
}
