package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	WS      WSConfig      `mapstructure:"ws"`
	Lottery LotteryConfig `mapstructure:"lottery"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Verbose bool   `mapstructure:"verbose"`
	File    string `mapstructure:"file"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type WSConfig struct {
	PingInterval time.Duration `mapstructure:"ping_interval"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LotteryConfig struct {
	DefaultOperator string `mapstructure:"default_operator"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "lottery.db")
	v.SetDefault("log.verbose", true)
	v.SetDefault("log.file", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "lottery-results")
	v.SetDefault("ws.ping_interval", 30*time.Second)
	v.SetDefault("ws.write_timeout", 10*time.Second)
	v.SetDefault("lottery.default_operator", "system")
}

// LoadConfig reads the YAML file at configPath when it is set, then applies
// LOTTERY_* environment overrides, e.g. LOTTERY_SERVER_PORT.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LOTTERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("讀取配置文件失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失敗: %w", err)
	}

	switch cfg.Storage.Driver {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("未知的存儲驅動: %q", cfg.Storage.Driver)
	}
	return &cfg, nil
}
