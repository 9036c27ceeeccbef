package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Engine   EngineConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port        string
	MetricsPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	PoolSize      int
}

// EngineConfig tunes the decision engine. Money values are in major currency units.
type EngineConfig struct {
	FreeShippingThreshold float64 `envconfig:"FREE_SHIPPING_THRESHOLD" default:"499"`
	GiftThreshold         float64 `envconfig:"GIFT_THRESHOLD" default:"999"`
	ThresholdWindow       float64 `envconfig:"THRESHOLD_WINDOW" default:"200"`
	ThresholdHighWindow   float64 `envconfig:"THRESHOLD_HIGH_WINDOW" default:"50"`

	PushWindow        float64 `envconfig:"PUSH_WINDOW" default:"300"`
	FillerBuffer      float64 `envconfig:"FILLER_BUFFER" default:"50"`
	FillerSmallBuffer float64 `envconfig:"FILLER_SMALL_BUFFER" default:"20"`
	RiskFloor         float64 `envconfig:"RISK_FLOOR" default:"2000"`
	LowStockThreshold int64   `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`
	HighTicketPrice   float64 `envconfig:"HIGH_TICKET_PRICE" default:"1500"`

	MaxAutoAddPrice      float64  `envconfig:"MAX_AUTO_ADD_PRICE" default:"499"`
	CooldownMinutes      int      `envconfig:"COOLDOWN_MINUTES" default:"1440"`
	DailyActionLimit     int      `envconfig:"DAILY_ACTION_LIMIT" default:"3"`
	RestrictedCategories []string `envconfig:"RESTRICTED_CATEGORIES" default:"alcohol,tobacco,medicine"`

	SignalCacheTTL         time.Duration `envconfig:"SIGNAL_CACHE_TTL" default:"5m"`
	StrategyCacheTTL       time.Duration `envconfig:"STRATEGY_CACHE_TTL" default:"60s"`
	RecommendationCacheTTL time.Duration `envconfig:"RECOMMENDATION_CACHE_TTL" default:"10m"`
	SessionTTL             time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	CycleLockTTL           time.Duration `envconfig:"CYCLE_LOCK_TTL" default:"30s"`
	TrendingWindow         time.Duration `envconfig:"TRENDING_WINDOW" default:"168h"`

	RerankURL           string        `envconfig:"RERANK_URL"`
	RerankAPIKey        string        `envconfig:"RERANK_API_KEY"`
	RerankTimeout       time.Duration `envconfig:"RERANK_TIMEOUT" default:"3s"`
	RerankMinCandidates int           `envconfig:"RERANK_MIN_CANDIDATES" default:"3"`

	SweepCron     string        `envconfig:"SWEEP_CRON" default:"0 */5 * * * *"`
	SweepLookback time.Duration `envconfig:"SWEEP_LOOKBACK" default:"1h"`
	JobQueueKey   string        `envconfig:"JOB_QUEUE_KEY" default:"auto_action_jobs"`
	CartLockTTL   time.Duration `envconfig:"CART_LOCK_TTL" default:"10s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	redisPool, err := strconv.Atoi(getEnv("REDIS_POOL_SIZE", "20"))
	if err != nil || redisPool <= 0 {
		return nil, errors.New("invalid redis pool size")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Smart Cart Engine"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			MetricsPath: getEnv("METRICS_PATH", "/metrics"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "smart_cart"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			PoolSize:      redisPool,
		},
	}

	if err := envconfig.Process("ENGINE", &cfg.Engine); err != nil {
		return nil, fmt.Errorf("failed to load engine config: %w", err)
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.Engine.ThresholdHighWindow > cfg.Engine.ThresholdWindow {
		return nil, errors.New("threshold high window must not exceed threshold window")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}
