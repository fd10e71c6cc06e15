package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Stamp      StampConfig      `yaml:"stamp"`
	Log        LogConfig        `yaml:"log"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// StampConfig 时间戳插件配置
type StampConfig struct {
	// DurableCache 把解析好的触发器配置持久化到数据库，
	// 进程重启后免去重扫注解
	DurableCache bool `yaml:"durable_cache"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json, text
	Output     string `yaml:"output"` // stdout, file, both
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`    // MB
	MaxAge     int    `yaml:"max_age"`     // days
	MaxBackups int    `yaml:"max_backups"` // number of backup files
	Compress   bool   `yaml:"compress"`    // compress backup files
}

type MonitoringConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig OpenTelemetry 追踪配置
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`     // OTLP gRPC 端点，例如 http://otel-collector:4317
	Insecure    bool    `yaml:"insecure"`     // 是否使用明文（本地/开发）
	SampleRatio float64 `yaml:"sample_ratio"` // 采样率 0.0~1.0
	ServiceName string  `yaml:"service_name"` // 自定义服务名，缺省使用 "stampable"
}

func Load() *Config {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}
	applyDefaults(&config)
	return &config
}

// GetDefaultConfig 返回默认配置
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "password",
			Name:            "stampable",
			MaxOpenConns:    100,
			MaxIdleConns:    10,
			ConnMaxLifetime: 3600 * time.Second,
		},
		Stamp: StampConfig{
			DurableCache: true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			FilePath:   "logs/stampable.log",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 10,
			Compress:   true,
		},
		Monitoring: MonitoringConfig{
			Tracing: TracingConfig{
				Enabled:     false,
				Endpoint:    "http://localhost:4317",
				Insecure:    true,
				SampleRatio: 0.1,
			},
		},
	}
}

func applyDefaults(config *Config) {
	defaults := GetDefaultConfig()
	if config.Server.Host == "" {
		config.Server.Host = defaults.Server.Host
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Database.Host == "" {
		config.Database.Host = defaults.Database.Host
	}
	if config.Database.Port == 0 {
		config.Database.Port = defaults.Database.Port
	}
	if config.Database.Name == "" {
		config.Database.Name = defaults.Database.Name
	}
	if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
	if config.Log.Format == "" {
		config.Log.Format = defaults.Log.Format
	}
	if config.Log.Output == "" {
		config.Log.Output = defaults.Log.Output
	}
	if config.Log.FilePath == "" {
		config.Log.FilePath = defaults.Log.FilePath
	}
}
