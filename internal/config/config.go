package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret 未配置 JWT_SECRET 时的默认密钥，仅用于本地开发
const DefaultJWTSecret = "kubepolaris-secret"

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	K8s      K8sConfig      `mapstructure:"k8s"`
	Panel    PanelConfig    `mapstructure:"panel"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Charset  string `mapstructure:"charset"`
}

// JWTConfig 宿主扩展下发令牌的校验配置
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// K8sConfig Kubernetes配置
type K8sConfig struct {
	DefaultNamespace string        `mapstructure:"default_namespace"`
	SyncTimeout      time.Duration `mapstructure:"sync_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	UseInformer      bool          `mapstructure:"use_informer"`
}

// PanelConfig 工作负载面板配置
type PanelConfig struct {
	DocsURL         string        `mapstructure:"docs_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Load 加载配置（纯环境变量模式）
func Load() *Config {
	// 先加载 .env 到系统环境变量
	if err := godotenv.Load(); err != nil {
		log.Printf("未找到 .env 文件，使用系统环境变量: %v", err)
	}

	cfg, err := LoadFrom(viper.New())
	if err != nil {
		log.Fatalf("配置解析失败: %v", err)
	}
	return cfg
}

// LoadFrom 从给定的 viper 实例解析配置，便于测试注入
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("配置解析失败: %w", err)
	}
	if config.Database.Driver != "sqlite" && config.Database.Driver != "mysql" {
		return nil, fmt.Errorf("不支持的数据库驱动: %s", config.Database.Driver)
	}
	if config.Server.Mode == "release" && config.UsesDefaultJWTSecret() {
		return nil, fmt.Errorf("release 模式必须设置 JWT_SECRET")
	}
	return &config, nil
}

// UsesDefaultJWTSecret 是否仍在使用默认 JWT 密钥
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret
}

var envBindings = map[string]string{
	"server.port": "SERVER_PORT",
	"server.mode": "SERVER_MODE",

	"database.driver":   "DB_DRIVER",
	"database.dsn":      "DB_DSN",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.username": "DB_USERNAME",
	"database.password": "DB_PASSWORD",
	"database.database": "DB_DATABASE",
	"database.charset":  "DB_CHARSET",

	"jwt.secret": "JWT_SECRET",

	"log.level": "LOG_LEVEL",

	"k8s.default_namespace": "K8S_DEFAULT_NAMESPACE",
	"k8s.sync_timeout":      "K8S_SYNC_TIMEOUT",
	"k8s.request_timeout":   "K8S_REQUEST_TIMEOUT",
	"k8s.use_informer":      "K8S_USE_INFORMER",

	"panel.docs_url":         "PANEL_DOCS_URL",
	"panel.refresh_interval": "PANEL_REFRESH_INTERVAL",
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/workloads.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "workloads")
	v.SetDefault("database.charset", "utf8mb4")

	v.SetDefault("jwt.secret", DefaultJWTSecret)

	// 日志默认配置
	v.SetDefault("log.level", "info")

	// K8s默认配置；空命名空间表示全部命名空间
	v.SetDefault("k8s.default_namespace", "")
	v.SetDefault("k8s.sync_timeout", 5*time.Second)
	v.SetDefault("k8s.request_timeout", 30*time.Second)
	v.SetDefault("k8s.use_informer", true)

	v.SetDefault("panel.docs_url", "https://kubernetes.io/docs/concepts/workloads/")
	v.SetDefault("panel.refresh_interval", time.Duration(0))
}
