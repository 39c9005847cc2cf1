package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// APIConfig HTTP API 认证配置
type APIConfig struct {
	AuthEnabled bool     `mapstructure:"authEnabled"`
	APIKeys     []string `mapstructure:"apiKeys"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// ProtocolConfig 解码器配置
// Revision 决定 F7-FA 附加信息的解释方式，必须与设备固件一致
type ProtocolConfig struct {
	Revision string `mapstructure:"revision"` // mask | legacy
	Timezone string `mapstructure:"timezone"` // 设备时间所在时区，如 Asia/Shanghai
}

// MQTTConfig MQTT 订阅配置
type MQTTConfig struct {
	Enable         bool          `mapstructure:"enable"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"clientID"`
	Topic          string        `mapstructure:"topic"`
	QoS            byte          `mapstructure:"qos"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	PayloadFormat  string        `mapstructure:"payloadFormat"` // binary | hex
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
}

// RedisConfig Redis 配置（发布订阅来源与去重）
type RedisConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PoolSize      int           `mapstructure:"poolSize"`
	MinIdleConns  int           `mapstructure:"minIdleConns"`
	DialTimeout   time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout   time.Duration `mapstructure:"readTimeout"`
	WriteTimeout  time.Duration `mapstructure:"writeTimeout"`
	Channel       string        `mapstructure:"channel"`
	PayloadFormat string        `mapstructure:"payloadFormat"`
	Dedup         bool          `mapstructure:"dedup"`
	DedupTTL      time.Duration `mapstructure:"dedupTTL"`
}

// IngestConfig 处理流水线配置
type IngestConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queueSize"`
}

// SinkConfig 追加写日志配置
type SinkConfig struct {
	Enable bool             `mapstructure:"enable"`
	Raw    LumberjackConfig `mapstructure:"raw"`
	Parsed LumberjackConfig `mapstructure:"parsed"`
}

// ForwarderConfig Odoo JSON-RPC 转发配置
type ForwarderConfig struct {
	Enable           bool          `mapstructure:"enable"`
	URL              string        `mapstructure:"url"`
	DB               string        `mapstructure:"db"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Retries          int           `mapstructure:"retries"`
	RatePerSec       int           `mapstructure:"ratePerSec"`
	Burst            int           `mapstructure:"burst"`
	BreakerThreshold int           `mapstructure:"breakerThreshold"`
	BreakerTimeout   time.Duration `mapstructure:"breakerTimeout"`
}

// MDNSConfig mDNS 服务发布配置
type MDNSConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Instance string `mapstructure:"instance"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	API       APIConfig       `mapstructure:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Protocol  ProtocolConfig  `mapstructure:"protocol"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Forwarder ForwarderConfig `mapstructure:"forwarder"`
	MDNS      MDNSConfig      `mapstructure:"mdns"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 IOT_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	// 环境变量覆盖：前缀 IOT_，并将点号替换为下划线
	v.SetEnvPrefix("IOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验枚举与数值范围
func (c *Config) Validate() error {
	switch strings.ToLower(c.Protocol.Revision) {
	case "mask", "legacy":
	default:
		return fmt.Errorf("protocol.revision must be mask or legacy, got %q", c.Protocol.Revision)
	}
	if c.Protocol.Timezone != "" {
		if _, err := time.LoadLocation(c.Protocol.Timezone); err != nil {
			return fmt.Errorf("protocol.timezone: %w", err)
		}
	}
	for name, f := range map[string]string{"mqtt.payloadFormat": c.MQTT.PayloadFormat, "redis.payloadFormat": c.Redis.PayloadFormat} {
		switch f {
		case "binary", "hex":
		default:
			return fmt.Errorf("%s must be binary or hex, got %q", name, f)
		}
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	if c.Ingest.QueueSize < 0 {
		return fmt.Errorf("ingest.queueSize must not be negative, got %d", c.Ingest.QueueSize)
	}
	if c.API.AuthEnabled && len(c.API.APIKeys) == 0 {
		return fmt.Errorf("api.apiKeys must not be empty when api.authEnabled is set")
	}
	if c.Forwarder.Enable && c.Forwarder.URL == "" {
		return fmt.Errorf("forwarder.url is required when forwarder is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gps-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("api.authEnabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/gps-gateway.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("protocol.revision", "mask")
	v.SetDefault("protocol.timezone", "UTC")

	v.SetDefault("mqtt.enable", true)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientID", "")
	v.SetDefault("mqtt.topic", "trackers/#")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.payloadFormat", "binary")
	v.SetDefault("mqtt.connectTimeout", "10s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 20)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.channel", "")
	v.SetDefault("redis.payloadFormat", "hex")
	v.SetDefault("redis.dedup", false)
	v.SetDefault("redis.dedupTTL", "10m")

	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.queueSize", 1024)

	v.SetDefault("sink.enable", true)
	v.SetDefault("sink.raw.filename", "data/raw_data.log")
	v.SetDefault("sink.raw.maxSize", 200)
	v.SetDefault("sink.raw.maxBackups", 30)
	v.SetDefault("sink.raw.maxAge", 90)
	v.SetDefault("sink.raw.compress", true)
	v.SetDefault("sink.parsed.filename", "data/parsed_data.json")
	v.SetDefault("sink.parsed.maxSize", 200)
	v.SetDefault("sink.parsed.maxBackups", 30)
	v.SetDefault("sink.parsed.maxAge", 90)
	v.SetDefault("sink.parsed.compress", true)

	v.SetDefault("forwarder.enable", false)
	v.SetDefault("forwarder.url", "")
	v.SetDefault("forwarder.model", "x_gps")
	v.SetDefault("forwarder.timeout", "5s")
	v.SetDefault("forwarder.retries", 3)
	v.SetDefault("forwarder.ratePerSec", 20)
	v.SetDefault("forwarder.burst", 40)
	v.SetDefault("forwarder.breakerThreshold", 5)
	v.SetDefault("forwarder.breakerTimeout", "30s")

	v.SetDefault("mdns.enable", false)
	v.SetDefault("mdns.instance", "")
}
