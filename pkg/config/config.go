package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Export    ExportConfig    `mapstructure:"export"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// 生产模式下gin使用ReleaseMode
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	// mysql 或 sqlite
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type LogConfig struct {
	Level          string `mapstructure:"level"`
	ProductionMode bool   `mapstructure:"production_mode"`
}

// 异步渲染/通知的工作池
type WorkerConfig struct {
	MaxWorkers  int           `mapstructure:"max_workers"`
	QueueSize   int           `mapstructure:"queue_size"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

type ExportConfig struct {
	// local 或 minio
	Storage string      `mapstructure:"storage"`
	Local   LocalConfig `mapstructure:"local"`
	Minio   MinioConfig `mapstructure:"minio"`
	// 可选的UTF-8 TrueType字体, 为空时PDF只能输出拉丁字符
	PDFFontPath string `mapstructure:"pdf_font_path"`
}

type LocalConfig struct {
	StoragePath string `mapstructure:"storage_path"`
	// 生成下载链接的前缀, 例如 http://localhost:8080/media
	BaseURL string `mapstructure:"base_url"`
}

type MinioConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Bucket          string        `mapstructure:"bucket"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
}

type MessagingConfig struct {
	// 通知渠道: log, email, kafka (可用逗号组合, 例如 "email,kafka")
	Provider string      `mapstructure:"provider"`
	// 实时推送hub: channel 或 kafka
	Hub   string      `mapstructure:"hub"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	Email EmailConfig `mapstructure:"email"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
}

type EmailConfig struct {
	// mailgun, sendgrid 或 smtp
	Provider string         `mapstructure:"provider"`
	From     string         `mapstructure:"from"`
	Mailgun  MailgunConfig  `mapstructure:"mailgun"`
	SendGrid SendGridConfig `mapstructure:"sendgrid"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

type MailgunConfig struct {
	Domain string `mapstructure:"domain"`
	Key    string `mapstructure:"key"`
}

type SendGridConfig struct {
	Key string `mapstructure:"key"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type WebSocketConfig struct {
	BroadcastBufferSize int `mapstructure:"broadcast_buffer_size"`

	WriteWaitSeconds int `mapstructure:"write_wait_seconds"`
	PongWaitSeconds  int `mapstructure:"pong_wait_seconds"`
	MaxMessageSize   int `mapstructure:"max_message_size"`
	// 重试相关配置
	MessageRetryCount      int `mapstructure:"message_retry_count"`
	MessageRetryIntervalMs int `mapstructure:"message_retry_interval_ms"`
}

var GlobalConfig Config

func Init() error {
	return load("config", "")
}

// 测试用的配置文件
func InitTest() error {
	return load("config.test", "")
}

// 从指定文件加载配置, 供命令行工具使用
func InitFile(path string) error {
	return load("", path)
}

func load(name, file string) error {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		// 获取项目根目录
		_, b, _, _ := runtime.Caller(0)
		basepath := filepath.Dir(filepath.Dir(filepath.Dir(b)))

		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(basepath, "config"))
		v.AddConfigPath("config")
	}

	// RELIEF_DATABASE_DSN 覆盖 database.dsn
	v.SetEnvPrefix("relief")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	GlobalConfig = cfg
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("worker.max_workers", 4)
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("worker.task_timeout", 2*time.Minute)
	v.SetDefault("export.storage", "local")
	v.SetDefault("export.local.storage_path", "media")
	v.SetDefault("export.minio.url_expiry", 24*time.Hour)
	v.SetDefault("export.pdf_font_path", "")
	v.SetDefault("messaging.provider", "log")
	v.SetDefault("messaging.hub", "channel")
	v.SetDefault("messaging.kafka.topic_prefix", "relief")
}
