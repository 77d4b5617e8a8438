// Package config 提供 TOML 配置加载与环境变量覆盖
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/quantora/hedgingengine/pkg/logger"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 指标服务配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 预言机配置
	Oracle OracleConfig `mapstructure:"oracle"`
	// 金库配置
	Vault VaultConfig `mapstructure:"vault"`
	// 引擎风控参数
	Engine EngineConfig `mapstructure:"engine"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DatabaseConfig MySQL 配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	OutboxTopic string   `mapstructure:"outbox_topic"`
	MaxRetries  int      `mapstructure:"max_retries"`
}

// OracleConfig EUR/USD 价格预言机配置
type OracleConfig struct {
	// Endpoint 价格源 HTTP 地址
	Endpoint string `mapstructure:"endpoint"`
	// CacheTTL 价格缓存秒数
	CacheTTL int `mapstructure:"cache_ttl"`
	// TimeoutMs 请求超时（毫秒）
	TimeoutMs int `mapstructure:"timeout_ms"`
}

// VaultConfig 抵押金库配置
type VaultConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// EngineConfig 引擎风控参数（比率类以基点配置）
type EngineConfig struct {
	MaxLeverage             int64  `mapstructure:"max_leverage"`
	MinMarginRatioBps       int64  `mapstructure:"min_margin_ratio_bps"`
	MaxMarginRatioBps       int64  `mapstructure:"max_margin_ratio_bps"`
	LiquidationThresholdBps int64  `mapstructure:"liquidation_threshold_bps"`
	EntryFeeBps             int64  `mapstructure:"entry_fee_bps"`
	ExitFeeBps              int64  `mapstructure:"exit_fee_bps"`
	LiquidationRewardBps    int64  `mapstructure:"liquidation_reward_bps"`
	MaxLiquidationRewardBps int64  `mapstructure:"max_liquidation_reward_bps"`
	MaxPositionsPerHedger   int    `mapstructure:"max_positions_per_hedger"`
	LiquidationCooldownSec  int64  `mapstructure:"liquidation_cooldown_sec"`
	CommitmentWindowSec     int64  `mapstructure:"commitment_window_sec"`
	EURInterestRateBps      int64  `mapstructure:"eur_interest_rate_bps"`
	USDInterestRateBps      int64  `mapstructure:"usd_interest_rate_bps"`
	MaxRewardPeriodBlocks   uint64 `mapstructure:"max_reward_period_blocks"`
	BlocksPerYear           uint64 `mapstructure:"blocks_per_year"`
	BlockIntervalMs         int64  `mapstructure:"block_interval_ms"`
	TreasuryFloat           string `mapstructure:"treasury_float"`
	SnowflakeNode           int64  `mapstructure:"snowflake_node"`
	AdminAPIKey             string `mapstructure:"admin_api_key"`
}

// Load 从文件加载配置，环境变量可覆盖任意键
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
