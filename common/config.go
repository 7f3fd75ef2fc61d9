package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 运行模式
const (
	ModeWeb = "web"
	ModeMCP = "mcp"
)

// 上传图片的默认大小上限（4 MiB）
const defaultUploadMaxBytes = 4 * 1024 * 1024

// Config 应用配置结构
type Config struct {
	// 运行模式: web（默认，HTTP 页面）或 mcp（stdio 工具）
	AppMode string

	// GenAI 配置（文生图与图片编辑共用同一个 APIKey / BaseURL）
	GenAIBaseURL string
	GenAIAPIKey  string
	// 分别用于图片生成与图片编辑的模型名称
	GenAIGenModelName  string
	GenAIEditModelName string
	// 图片输出格式: base64 或 url
	GenAIImageFormat string
	// GenAI 请求超时时间（秒），0 表示不设超时
	GenAITimeoutSeconds int

	ServerAddress string
	ServerPort    string
	// HTTP 服务超时
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// 上传图片大小上限（字节）
	UploadMaxBytes int64
	// 默认语言: en 或 pt-BR
	DefaultLocale string
	// 会话空闲超时与清理周期（cron 表达式）
	SessionIdleTimeout time.Duration
	SessionSweepSpec   string
	// 会话 Cookie 是否仅通过 HTTPS 发送
	CookieSecure bool

	// OSS 配置
	OSSEndpoint  string
	OSSRegion    string
	OSSAccessKey string
	OSSSecretKey string
	OSSBucket    string

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

// LoadConfig 从 .env 文件加载配置
func LoadConfig() (*Config, error) {
	// 加载 .env 文件（如果存在）
	if err := godotenv.Load(); err != nil {
		// .env 文件不存在时，直接从环境变量读取
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	config, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	// 初始化日志系统
	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return config, nil
}

// configFromEnv 读取环境变量并校验
func configFromEnv() (*Config, error) {
	config := &Config{
		AppMode:             strings.ToLower(getEnv("APP_MODE", ModeWeb)),
		GenAIBaseURL:        getEnv("GENAI_BASE_URL", ""),
		GenAIAPIKey:         getEnv("GENAI_API_KEY", getEnv("API_KEY", "")),
		GenAIGenModelName:   getEnv("GENAI_GEN_MODEL_NAME", "imagen-4.0-generate-001"),
		GenAIEditModelName:  getEnv("GENAI_EDIT_MODEL_NAME", "gemini-2.5-flash-image"),
		GenAIImageFormat:    strings.ToLower(getEnv("GENAI_IMAGE_FORMAT", "base64")),
		GenAITimeoutSeconds: getEnvInt("GENAI_TIMEOUT_SECONDS", 0),
		ServerAddress:       getEnv("SERVER_ADDRESS", "0.0.0.0"),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		HTTPReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		HTTPWriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		HTTPIdleTimeout:     getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		UploadMaxBytes:      int64(getEnvInt("UPLOAD_MAX_BYTES", defaultUploadMaxBytes)),
		DefaultLocale:       getEnv("DEFAULT_LOCALE", "en"),
		SessionIdleTimeout:  getEnvDuration("SESSION_IDLE_TIMEOUT", time.Hour),
		SessionSweepSpec:    getEnv("SESSION_SWEEP_SPEC", "@every 5m"),
		CookieSecure:        getEnvBool("COOKIE_SECURE", false),
		// OSS 配置
		OSSEndpoint:  getEnv("OSS_ENDPOINT", ""),
		OSSRegion:    getEnv("OSS_REGION", "us-east-1"),
		OSSAccessKey: getEnv("OSS_ACCESS_KEY", ""),
		OSSSecretKey: getEnv("OSS_SECRET_KEY", ""),
		OSSBucket:    getEnv("OSS_BUCKET", ""),
		// 日志配置
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),
		LogFile:   getEnv("LOG_FILE", ""),
	}

	// 缺少凭证时无法构造客户端，启动失败
	if config.GenAIAPIKey == "" {
		return nil, fmt.Errorf("GENAI_API_KEY is required")
	}

	switch config.AppMode {
	case ModeWeb:
	case ModeMCP:
		// stdout 用于 MCP 协议通信
		if config.LogOutput == "stdout" {
			config.LogOutput = "stderr"
		}
	default:
		return nil, fmt.Errorf("unsupported APP_MODE: %s", config.AppMode)
	}

	switch config.GenAIImageFormat {
	case "base64":
	case "url":
		if config.OSSBucket == "" {
			return nil, fmt.Errorf("OSS_BUCKET is required when GENAI_IMAGE_FORMAT=url")
		}
	default:
		return nil, fmt.Errorf("unsupported GENAI_IMAGE_FORMAT: %s", config.GenAIImageFormat)
	}

	if config.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if config.GenAITimeoutSeconds < 0 {
		return nil, fmt.Errorf("GENAI_TIMEOUT_SECONDS must not be negative")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes" || value == "on"
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}

// getEnvDuration 获取时长类型环境变量，例如 30s、5m
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

// GetServerAddr 返回完整的服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerAddress, c.ServerPort)
}

// GenAITimeout 返回单次 GenAI 调用的超时时间
func (c *Config) GenAITimeout() time.Duration {
	return time.Duration(c.GenAITimeoutSeconds) * time.Second
}

// ArchiveEnabled 生成结果是否上传到 OSS
func (c *Config) ArchiveEnabled() bool {
	return c.GenAIImageFormat == "url"
}
