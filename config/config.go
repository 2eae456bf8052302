package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	QueueBackendRedis  = "redis"
	QueueBackendMemory = "memory"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Stream   StreamConfig   `yaml:"stream"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LedgerConfig 帳本後端與周邊元件開關
type LedgerConfig struct {
	Store                string `yaml:"store"`
	Queue                string `yaml:"queue"`
	QueueBuffer          int    `yaml:"queue_buffer"`
	InventoryGate        bool   `yaml:"inventory_gate"`
	IdempotencyCacheSize int    `yaml:"idempotency_cache_size"`
}

// StreamConfig Redis Stream 通知隊列的逾時與重試設定
type StreamConfig struct {
	ConsumerID         string        `yaml:"consumer_id"`
	ClaimMinIdleTime   time.Duration `yaml:"claim_min_idle_time"`
	MaxRetryCount      int           `yaml:"max_retry_count"`
	ReadGroupBlockTime time.Duration `yaml:"read_group_block_time"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var AppConfig *Config

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:   GetServerConfig(),
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Ledger:   GetLedgerConfig(),
		Stream:   GetStreamConfig(),
		Log:      LogConfig{Level: getEnv("LOG_LEVEL", "info")},
	}

	// 設定檔覆蓋環境變數
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return AppConfig, nil
}

// LoadFile 讀取 YAML 設定檔並覆蓋 cfg 中有出現的欄位
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Ledger.Store {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown ledger store %q", c.Ledger.Store)
	}
	switch c.Ledger.Queue {
	case QueueBackendRedis, QueueBackendMemory:
	default:
		return fmt.Errorf("unknown ledger queue %q", c.Ledger.Queue)
	}
	if c.Ledger.QueueBuffer <= 0 {
		return fmt.Errorf("ledger queue buffer must be positive, got %d", c.Ledger.QueueBuffer)
	}
	if c.Ledger.IdempotencyCacheSize < 0 {
		return fmt.Errorf("idempotency cache size must not be negative, got %d", c.Ledger.IdempotencyCacheSize)
	}
	return nil
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnv("TEST_DB_PORT", "5433"), // 測試 DB 用 5433 port
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     getEnv("TEST_REDIS_HOST", "localhost"),
		Port:     getEnv("TEST_REDIS_PORT", "6380"), // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	return &Config{
		Server:   ServerConfig{Port: "8080", Mode: "test", ShutdownTimeout: 5 * time.Second},
		Database: *testConfig,
		Redis:    testRedisConfig,
		Ledger: LedgerConfig{
			Store:                StoreBackendMemory,
			Queue:                QueueBackendMemory,
			QueueBuffer:          100,
			IdempotencyCacheSize: 128,
		},
		Stream: StreamConfig{
			ClaimMinIdleTime:   500 * time.Millisecond,
			MaxRetryCount:      3,
			ReadGroupBlockTime: 200 * time.Millisecond,
		},
		Log: LogConfig{Level: "debug"},
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "8080"),
		Mode:            getEnv("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

func GetLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Store:                getEnv("LEDGER_STORE", StoreBackendPostgres),
		Queue:                getEnv("LEDGER_QUEUE", QueueBackendRedis),
		QueueBuffer:          getEnvInt("LEDGER_QUEUE_BUFFER", 1024),
		InventoryGate:        getEnvBool("LEDGER_INVENTORY_GATE", true),
		IdempotencyCacheSize: getEnvInt("LEDGER_IDEMPOTENCY_CACHE_SIZE", 4096),
	}
}

func GetStreamConfig() StreamConfig {
	return StreamConfig{
		ConsumerID:         getEnv("STREAM_CONSUMER_ID", ""),
		ClaimMinIdleTime:   getEnvDuration("STREAM_CLAIM_MIN_IDLE", 5*time.Second),
		MaxRetryCount:      getEnvInt("STREAM_MAX_RETRY", 5),
		ReadGroupBlockTime: getEnvDuration("STREAM_BLOCK_TIME", 2*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Errorf("invalid %s: %w", key, err))
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		panic(fmt.Errorf("invalid %s: %w", key, err))
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Errorf("invalid %s: %w", key, err))
	}
	return d
}
