package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	StoreDriver string // memory | redis
	GeoIPDBPath string // 为空时不做 IP 定位
	LogLevel    string
	LogFormat   string // json | console
	PolicyFile  string
	IPRateLimit int // 每个 IP 每分钟请求数
	Policy      *PolicyConfig
}

// Load 加载配置: .env (可选) -> 环境变量 -> 策略文件
func Load() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", ":8080"),
		DBPath:      getEnv("DB_PATH", "./data/geofence.db"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		StoreDriver: getEnv("STORE_DRIVER", "memory"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		PolicyFile:  os.Getenv("POLICY_FILE"),
	}

	limit, err := strconv.Atoi(getEnv("IP_RATE_LIMIT", "300"))
	if err != nil || limit < 1 {
		return nil, fmt.Errorf("invalid IP_RATE_LIMIT %q", os.Getenv("IP_RATE_LIMIT"))
	}
	cfg.IPRateLimit = limit

	if cfg.StoreDriver != "memory" && cfg.StoreDriver != "redis" {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
