package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// AppConfig 全局配置实例
var AppConfig *Config

// Config 应用配置结构
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	MongoDB MongoDBConfig `yaml:"mongodb"`
	Redis   RedisConfig   `yaml:"redis"`
	Sync    SyncConfig    `yaml:"sync"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         string        `yaml:"port" env:"SERVER_PORT" default:"8810"`
	Mode         string        `yaml:"mode" env:"GIN_MODE" default:"debug"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
}

// CacheConfig 本地缓存库（SQLite）配置
type CacheConfig struct {
	DBPath       string `yaml:"db_path" env:"CACHE_DB_PATH" default:"data/analytics.db"`
	BusyTimeout  int    `yaml:"busy_timeout_ms" default:"5000"`
	LogLevel     string `yaml:"log_level" default:"warn"`
	MaxOpenConns int    `yaml:"max_open_conns" default:"1"`
}

// MongoDBConfig 订单源数据库配置
type MongoDBConfig struct {
	URI              string `yaml:"uri" env:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database         string `yaml:"database" env:"MONGO_DB" default:"pos"`
	OrdersCollection string `yaml:"orders_collection" default:"orders"`
	StoresCollection string `yaml:"stores_collection" default:"stores"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB           int           `yaml:"db" env:"REDIS_DB" default:"0"`
	PoolSize     int           `yaml:"pool_size" default:"10"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"3s"`
}

// SyncConfig 同步策略配置
type SyncConfig struct {
	LookbackDays   int     `yaml:"lookback_days" default:"7"`
	FullSyncDays   int     `yaml:"full_sync_days" default:"90"`
	MaxSyncDays    int     `yaml:"max_sync_days" default:"365"`
	AnomalyCeiling float64 `yaml:"anomaly_ceiling" default:"1000000"`
	AutoRefresh    bool    `yaml:"auto_refresh" default:"true"`
	SyncToken      string  `yaml:"sync_token" env:"SYNC_TOKEN"`
}

// AuthConfig 控制台登录配置
type AuthConfig struct {
	JWTSigningKey string        `yaml:"jwt_signing_key" env:"JWT_SIGNING_KEY"`
	JWTExpiry     time.Duration `yaml:"jwt_expiry" default:"24h"`
	Issuer        string        `yaml:"issuer" default:"pos-insight"`
	AdminUser     string        `yaml:"admin_user" env:"ADMIN_USER" default:"admin"`
	// bcrypt哈希，不存明文
	AdminPasswordHash string `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `yaml:"level" default:"info"`
	Output   string `yaml:"output" default:"stdout"`
	FilePath string `yaml:"file_path" default:"logs/app.log"`
}

// InitConfig 初始化配置
func InitConfig() error {
	// 加载环境变量
	if err := loadEnv(); err != nil {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	// 创建默认配置
	config := &Config{}
	setDefaults(config)

	// 尝试从配置文件加载
	if err := loadFromFile(config); err != nil {
		log.Printf("Warning: failed to load config file: %v", err)
	}

	// 从环境变量覆盖配置
	loadFromEnv(config)

	// 验证配置
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	AppConfig = config
	return nil
}

// loadEnv 加载环境变量文件
func loadEnv() error {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	envFiles := []string{
		".env",
		fmt.Sprintf(".env.%s", env),
		".env.local",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			if err := godotenv.Load(file); err != nil {
				return err
			}
		}
	}

	return nil
}

// setDefaults 设置默认值
func setDefaults(config *Config) {
	config.Server.Port = "8810"
	config.Server.Mode = "debug"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second

	config.Cache.DBPath = "data/analytics.db"
	config.Cache.BusyTimeout = 5000
	config.Cache.LogLevel = "warn"
	config.Cache.MaxOpenConns = 1

	config.MongoDB.URI = "mongodb://localhost:27017"
	config.MongoDB.Database = "pos"
	config.MongoDB.OrdersCollection = "orders"
	config.MongoDB.StoresCollection = "stores"

	config.Redis.Addr = "localhost:6379"
	config.Redis.DB = 0
	config.Redis.PoolSize = 10
	config.Redis.DialTimeout = 5 * time.Second
	config.Redis.ReadTimeout = 3 * time.Second
	config.Redis.WriteTimeout = 3 * time.Second

	config.Sync.LookbackDays = 7
	config.Sync.FullSyncDays = 90
	config.Sync.MaxSyncDays = 365
	config.Sync.AnomalyCeiling = 1000000
	config.Sync.AutoRefresh = true

	config.Auth.JWTExpiry = 24 * time.Hour
	config.Auth.Issuer = "pos-insight"
	config.Auth.AdminUser = "admin"

	config.Log.Level = "info"
	config.Log.Output = "stdout"
	config.Log.FilePath = "logs/app.log"
}

// loadFromFile 从配置文件加载
func loadFromFile(config *Config) error {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config/config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, config)
}

// loadFromEnv 从环境变量加载
func loadFromEnv(config *Config) {
	// Server配置
	if port := os.Getenv("SERVER_PORT"); port != "" {
		config.Server.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	// 缓存库配置
	if path := os.Getenv("CACHE_DB_PATH"); path != "" {
		config.Cache.DBPath = path
	}

	// MongoDB配置
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.MongoDB.URI = uri
	}
	if db := os.Getenv("MONGO_DB"); db != "" {
		config.MongoDB.Database = db
	}

	// Redis配置
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			config.Redis.DB = db
		}
	}

	// 同步配置
	if token := os.Getenv("SYNC_TOKEN"); token != "" {
		config.Sync.SyncToken = token
	}
	if days := os.Getenv("SYNC_LOOKBACK_DAYS"); days != "" {
		if parsed, err := strconv.Atoi(days); err == nil && parsed > 0 {
			config.Sync.LookbackDays = parsed
		}
	}
	if days := os.Getenv("FULL_SYNC_DAYS"); days != "" {
		if parsed, err := strconv.Atoi(days); err == nil && parsed > 0 {
			config.Sync.FullSyncDays = parsed
		}
	}
	if ceiling := os.Getenv("ANOMALY_CEILING"); ceiling != "" {
		if parsed, err := strconv.ParseFloat(ceiling, 64); err == nil && parsed > 0 {
			config.Sync.AnomalyCeiling = parsed
		}
	}
	if auto := os.Getenv("AUTO_REFRESH"); auto != "" {
		config.Sync.AutoRefresh = auto == "1" || strings.EqualFold(auto, "true")
	}

	// 认证配置
	if signingKey := os.Getenv("JWT_SIGNING_KEY"); signingKey != "" {
		config.Auth.JWTSigningKey = signingKey
	}
	if user := os.Getenv("ADMIN_USER"); user != "" {
		config.Auth.AdminUser = user
	}
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		config.Auth.AdminPasswordHash = hash
	}
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	if config.Cache.DBPath == "" {
		return fmt.Errorf("cache db path is required")
	}

	if config.MongoDB.URI == "" {
		return fmt.Errorf("mongodb uri is required")
	}

	if config.Sync.LookbackDays <= 0 {
		return fmt.Errorf("sync lookback_days must be positive")
	}
	if config.Sync.FullSyncDays <= 0 || config.Sync.FullSyncDays > config.Sync.MaxSyncDays {
		return fmt.Errorf("sync full_sync_days must be in (0, %d]", config.Sync.MaxSyncDays)
	}

	// 验证端口号
	if _, err := strconv.Atoi(strings.TrimPrefix(config.Server.Port, ":")); err != nil {
		return fmt.Errorf("invalid server port: %s", config.Server.Port)
	}

	// 验证模式
	validModes := []string{"debug", "release", "test"}
	modeValid := false
	for _, mode := range validModes {
		if config.Server.Mode == mode {
			modeValid = true
			break
		}
	}
	if !modeValid {
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	return nil
}

// GetConfig 获取配置实例
func GetConfig() *Config {
	if AppConfig == nil {
		log.Fatal("config not initialized, call InitConfig() first")
	}
	return AppConfig
}

// IsProduction 判断是否为生产环境
func IsProduction() bool {
	return AppConfig != nil && AppConfig.Server.Mode == "release"
}
