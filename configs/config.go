// Package configs provides configuration structures and utilities for the storefront.
// It offers mechanisms for loading, validating, and saving configuration from various sources
// including JSON and YAML files. The package defines one configuration structure
// shared by the catalog client, the collection store and the development catalog server.
//
// Package configs 提供店面的配置结构和工具。
// 它提供从各种来源（包括JSON和YAML文件）加载、验证和保存配置的机制。
// 该包定义了一个由目录客户端、集合存储和开发目录服务器共享的配置结构。
package configs

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Stale policies accepted by store.stale_policy.
//
// store.stale_policy 接受的过期策略。
const (
	StalePolicyLastSettled  = "last-settled"
	StalePolicyDiscardStale = "discard-stale"
)

// Config represents the complete configuration for the storefront.
// It contains all settings needed to configure the client and the dev server,
// organized into logical sections for different components.
//
// Config 表示店面的完整配置。
// 它包含配置客户端和开发服务器所需的所有设置，
// 按不同组件的逻辑部分进行组织。
type Config struct {
	// API locates the remote catalog
	// API 定位远程目录
	API APIConfig `json:"api" yaml:"api" mapstructure:"api"`

	// Store controls the collection store
	// Store 控制集合存储
	Store StoreConfig `json:"store" yaml:"store" mapstructure:"store"`

	// Server configures the development catalog server
	// Server 配置开发目录服务器
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`

	// Cache configures the response cache of the dev server
	// Cache 配置开发服务器的响应缓存
	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`

	// Metrics configures performance monitoring and statistics
	// Metrics 配置性能监控和统计
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Log configures the logging behavior
	// Log 配置日志行为
	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`

	// Extensions configures optional features like hot reloading
	// Extensions 配置可选功能，如热重载
	Extensions ExtensionsConfig `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// APIConfig contains the location and credentials of the remote catalog API.
//
// APIConfig 包含远程目录API的地址和凭据。
type APIConfig struct {
	// BaseURL is the scheme and host of the catalog API, without a trailing path
	// BaseURL 是目录API的协议和主机，不带尾随路径
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// FallbackBaseURL is a mirror of the catalog API tried when a fetch from
	// BaseURL fails; empty disables it
	// FallbackBaseURL 是从BaseURL获取失败时尝试的目录API镜像，为空时禁用
	FallbackBaseURL string `json:"fallback_base_url" yaml:"fallback_base_url" mapstructure:"fallback_base_url"`

	// SecretKey is sent in the "key" header of product listing requests
	// SecretKey 在商品列表请求的"key"头中发送
	SecretKey string `json:"secret_key" yaml:"secret_key" mapstructure:"secret_key"`

	// Timeout bounds every HTTP request issued by the client
	// Timeout 限制客户端发出的每个HTTP请求
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent with every request when not empty
	// UserAgent 非空时随每个请求发送
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig contains settings for the remote collection store.
//
// StoreConfig 包含远程集合存储的设置。
type StoreConfig struct {
	// PageSize is the limit of every listing request the store issues
	// PageSize 是存储发出的每个列表请求的limit
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// StalePolicy decides how overlapping settlements are applied ("last-settled", "discard-stale")
	// StalePolicy 决定如何应用重叠的结算（"last-settled"、"discard-stale"）
	StalePolicy string `json:"stale_policy" yaml:"stale_policy" mapstructure:"stale_policy"`

	// CategoryCacheTTL memoises the category list client side (0 = disabled)
	// CategoryCacheTTL 在客户端记忆分类列表（0 = 禁用）
	CategoryCacheTTL time.Duration `json:"category_cache_ttl" yaml:"category_cache_ttl" mapstructure:"category_cache_ttl"`
}

// ServerConfig contains settings for the development catalog server.
//
// ServerConfig 包含开发目录服务器的设置。
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080"
	// Addr 是监听地址，例如":8080"
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// Mode is the gin mode ("debug", "release", "test")
	// Mode 是gin模式（"debug"、"release"、"test"）
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// SeedFile is a JSON or YAML catalog loaded at startup; empty uses built-in sample data
	// SeedFile 是启动时加载的JSON或YAML目录；为空时使用内置示例数据
	SeedFile string `json:"seed_file" yaml:"seed_file" mapstructure:"seed_file"`

	// ReadTimeout and WriteTimeout bound each connection
	// ReadTimeout 和 WriteTimeout 限制每个连接
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown
	// ShutdownTimeout 限制优雅关闭的时间
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// CacheConfig contains settings for the response cache.
// These settings control the backend and expiration policy of
// cached listing pages.
//
// CacheConfig 包含响应缓存的设置。
// 这些设置控制缓存列表页的后端和过期策略。
type CacheConfig struct {
	// Enable determines whether the cache is active
	// Enable 确定缓存是否处于活动状态
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Backend selects the implementation ("memory", "redis")
	// Backend 选择实现（"memory"、"redis"）
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Codec serialises values for byte oriented backends ("json", "gob")
	// Codec 为面向字节的后端序列化值（"json"、"gob"）
	Codec string `json:"codec" yaml:"codec" mapstructure:"codec"`

	// MaxEntries is the maximum number of items the memory backend holds (0 = unlimited)
	// MaxEntries 是内存后端可以容纳的最大项目数（0 = 无限制）
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`

	// DefaultTTL is the default time-to-live for cache entries
	// DefaultTTL 是缓存条目的默认生存时间
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// CleanupInterval is how often expired items are removed
	// CleanupInterval 是清除过期项目的频率
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" mapstructure:"cleanup_interval"`

	// Redis configures the redis backend
	// Redis 配置redis后端
	Redis RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RedisConfig contains the connection settings of the redis cache backend.
//
// RedisConfig 包含redis缓存后端的连接设置。
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password  string `json:"password" yaml:"password" mapstructure:"password"`
	DB        int    `json:"db" yaml:"db" mapstructure:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" mapstructure:"key_prefix"`
}

// MetricsConfig contains settings for metrics collection.
// These settings control how performance data is collected,
// processed, and exposed for monitoring.
//
// MetricsConfig 包含指标收集的设置。
// 这些设置控制如何收集、处理和暴露性能数据以进行监控。
type MetricsConfig struct {
	// Enable determines whether metrics collection is active
	// Enable 确定是否启用指标收集
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Level controls the detail of metrics collection ("basic", "detailed", "disabled")
	// Level 控制指标收集的详细程度（"basic"、"detailed"、"disabled"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Path is the route the dev server exposes Prometheus metrics on
	// Path 是开发服务器暴露Prometheus指标的路由
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// HistogramBuckets defines latency histogram buckets in milliseconds
	// HistogramBuckets 定义延迟直方图桶（毫秒）
	HistogramBuckets []float64 `json:"histogram_buckets" yaml:"histogram_buckets" mapstructure:"histogram_buckets"`
}

// LogConfig contains settings for logging.
// These settings control the logging behavior, including
// log level, format, and output destination.
//
// LogConfig 包含日志记录的设置。
// 这些设置控制日志行为，包括日志级别、格式和输出目的地。
type LogConfig struct {
	// Level sets the minimum log level ("debug", "info", "warn", "error")
	// Level 设置最低日志级别（"debug"、"info"、"warn"、"error"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format specifies the log format ("text", "json")
	// Format 指定日志格式（"text"、"json"）
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output determines where logs are written ("stdout", "stderr", "file")
	// Output 确定日志写入的位置（"stdout"、"stderr"、"file"）
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// FilePath is the path to the log file when Output is "file"
	// FilePath 是当Output为"file"时的日志文件路径
	FilePath string `json:"file_path" yaml:"file_path" mapstructure:"file_path"`
}

// ExtensionsConfig contains settings for extensions.
//
// ExtensionsConfig 包含扩展的设置。
type ExtensionsConfig struct {
	// HotReload contains settings for dynamic configuration reloading
	// HotReload 包含动态配置重新加载的设置
	HotReload HotReloadConfig `json:"hot_reload" yaml:"hot_reload" mapstructure:"hot_reload"`
}

// HotReloadConfig contains settings for hot reloading.
// When enabled, changes to api.base_url, api.secret_key and log.level
// are applied without a restart.
//
// HotReloadConfig 包含热重载的设置。
// 启用后，api.base_url、api.secret_key 和 log.level 的更改无需重启即可生效。
type HotReloadConfig struct {
	// Enable determines whether hot reloading is active
	// Enable 确定是否启用热重载
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// WatchInterval is the polling interval used when file notifications are unavailable (0 = use fsnotify)
	// WatchInterval 是文件通知不可用时使用的轮询间隔（0 = 使用fsnotify）
	WatchInterval time.Duration `json:"watch_interval" yaml:"watch_interval" mapstructure:"watch_interval"`
}

// DefaultConfig returns a new Config with default values.
// This provides a starting point for configuration with reasonable defaults
// for all settings, which can then be customized as needed.
//
// DefaultConfig 返回具有默认值的新Config。
// 这为所有设置提供了具有合理默认值的配置起点，
// 然后可以根据需要进行自定义。
//
// Returns:
//   - *Config: A new configuration instance with default values
//
// 返回：
//   - *Config: 具有默认值的新配置实例
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Store: StoreConfig{
			PageSize:    10,
			StalePolicy: StalePolicyLastSettled,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enable:          true,
			Backend:         "memory",
			Codec:           "json",
			MaxEntries:      10000,
			DefaultTTL:      60 * time.Second,
			CleanupInterval: 30 * time.Second,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "storefront:",
			},
		},
		Metrics: MetricsConfig{
			Enable:           true,
			Level:            "basic",
			Path:             "/metrics",
			HistogramBuckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Extensions: ExtensionsConfig{
			HotReload: HotReloadConfig{
				Enable: false,
			},
		},
	}
}

// LoadFromFile loads configuration from a file.
// It supports both YAML and JSON formats, automatically
// detecting the format based on the file extension.
//
// LoadFromFile 从文件加载配置。
// 它支持YAML和JSON格式，根据文件扩展名自动检测格式。
//
// Parameters:
//   - filename: Path to the configuration file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if loading fails
//
// 参数：
//   - filename: 配置文件的路径
//
// 返回：
//   - *Config: 加载的配置
//   - error: 如果加载失败则返回错误
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer file.Close()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case "yaml", "yml", "json":
	default:
		return nil, fmt.Errorf("unsupported configuration file format: .%s", ext)
	}

	return LoadFromReader(file, ext)
}

// LoadFromReader loads configuration from an io.Reader.
// This allows loading configuration from sources other than files,
// such as network streams or in-memory data.
//
// LoadFromReader 从io.Reader加载配置。
// 这允许从文件以外的源加载配置，
// 如网络流或内存中的数据。
//
// Parameters:
//   - r: The reader providing the configuration data
//   - format: The format of the data ("json", "yaml", or "yml")
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if loading fails
//
// 参数：
//   - r: 提供配置数据的读取器
//   - format: 数据的格式（"json"、"yaml"或"yml"）
//
// 返回：
//   - *Config: 加载的配置
//   - error: 如果加载失败则返回错误
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	config := DefaultConfig()
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(config)
	case "json":
		err = json.NewDecoder(r).Decode(config)
	default:
		return nil, fmt.Errorf("unsupported configuration format: %s", format)
	}

	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
// It supports both YAML and JSON formats, automatically
// selecting the format based on the file extension.
//
// SaveToFile 将配置保存到文件。
// 它支持YAML和JSON格式，根据文件扩展名自动选择格式。
//
// Parameters:
//   - filename: Path where the configuration will be saved
//
// Returns:
//   - error: An error if saving fails
//
// 参数：
//   - filename: 配置将保存的路径
//
// 返回：
//   - error: 如果保存失败则返回错误
func (c *Config) SaveToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".yaml", ".yml":
		encoder := yaml.NewEncoder(file)
		defer encoder.Close()
		err = encoder.Encode(c)
	case ".json":
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(c)
	default:
		return fmt.Errorf("unsupported configuration file format: %s", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	return nil
}

// Validate validates the configuration.
// It checks that all settings have valid values and
// that there are no conflicts or inconsistencies.
//
// Validate 验证配置。
// 它检查所有设置是否具有有效值，
// 并且没有冲突或不一致。
//
// Returns:
//   - error: An error describing the validation failure, or nil if valid
//
// 返回：
//   - error: 描述验证失败的错误，如果有效则为nil
func (c *Config) Validate() error {
	// Validate api settings
	// 验证API设置
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be specified")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL")
	}
	if c.API.FallbackBaseURL != "" {
		u, err := url.Parse(c.API.FallbackBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api.fallback_base_url must be an absolute http(s) URL")
		}
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be non-negative")
	}

	// Validate store settings
	// 验证存储设置
	if c.Store.PageSize <= 0 || c.Store.PageSize > 100 {
		return fmt.Errorf("store.page_size must be between 1 and 100")
	}
	switch c.Store.StalePolicy {
	case StalePolicyLastSettled, StalePolicyDiscardStale:
	default:
		return fmt.Errorf("store.stale_policy must be one of: %s, %s", StalePolicyLastSettled, StalePolicyDiscardStale)
	}
	if c.Store.CategoryCacheTTL < 0 {
		return fmt.Errorf("store.category_cache_ttl must be non-negative")
	}

	// Validate server settings
	// 验证服务器设置
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must be specified")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be one of: debug, release, test")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be non-negative")
	}

	// Validate cache settings
	// 验证缓存设置
	if c.Cache.Enable {
		switch c.Cache.Backend {
		case "memory", "redis":
		default:
			return fmt.Errorf("cache.backend must be one of: memory, redis")
		}
		switch c.Cache.Codec {
		case "json", "gob":
		default:
			return fmt.Errorf("cache.codec must be one of: json, gob")
		}
		if c.Cache.MaxEntries < 0 {
			return fmt.Errorf("cache.max_entries must be non-negative")
		}
		if c.Cache.DefaultTTL < 0 {
			return fmt.Errorf("cache.default_ttl must be non-negative")
		}
		if c.Cache.Backend == "memory" && c.Cache.CleanupInterval < time.Second {
			return fmt.Errorf("cache.cleanup_interval must be at least 1 second")
		}
		if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr must be specified when cache.backend is 'redis'")
		}
	}

	// Validate metrics settings
	// 验证指标设置
	if c.Metrics.Enable {
		switch c.Metrics.Level {
		case "disabled", "basic", "detailed":
		default:
			return fmt.Errorf("metrics.level must be one of: disabled, basic, detailed")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/'")
		}
		for i := 1; i < len(c.Metrics.HistogramBuckets); i++ {
			if c.Metrics.HistogramBuckets[i] <= c.Metrics.HistogramBuckets[i-1] {
				return fmt.Errorf("metrics.histogram_buckets must be strictly increasing")
			}
		}
	}

	// Validate log settings
	// 验证日志设置
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
		// 有效级别
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
		// Valid formats
		// 有效格式
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	switch c.Log.Output {
	case "stdout", "stderr", "file":
		// Valid outputs
		// 有效输出
	default:
		return fmt.Errorf("log.output must be one of: stdout, stderr, file")
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		return fmt.Errorf("log.file_path must be specified when log.output is 'file'")
	}

	// Validate extensions settings
	// 验证扩展设置
	if c.Extensions.HotReload.Enable && c.Extensions.HotReload.WatchInterval != 0 &&
		c.Extensions.HotReload.WatchInterval < time.Second {
		return fmt.Errorf("extensions.hot_reload.watch_interval must be at least 1 second")
	}

	return nil
}
