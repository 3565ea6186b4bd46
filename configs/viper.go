// Package configs provides configuration structures and utilities for the storefront.
// This file implements Viper-based configuration management with hot reloading support.
//
// Package configs 提供店面的配置结构和工具。
// 本文件实现基于Viper的配置管理，支持热重载。
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix of environment variables overriding file settings,
// e.g. STOREFRONT_API_SECRET_KEY overrides api.secret_key.
//
// EnvPrefix 是覆盖文件设置的环境变量前缀，
// 例如 STOREFRONT_API_SECRET_KEY 覆盖 api.secret_key。
const EnvPrefix = "STOREFRONT"

// envKeys are bound explicitly so they apply even when absent from the file.
var envKeys = []string{
	"api.base_url",
	"api.fallback_base_url",
	"api.secret_key",
	"api.timeout",
	"server.addr",
	"cache.backend",
	"cache.redis.addr",
	"cache.redis.password",
	"log.level",
}

// ViperConfig wraps a Config with Viper functionality for hot reloading.
// It provides thread-safe access to configuration and supports dynamic
// updates when the underlying configuration file changes.
//
// ViperConfig 使用Viper功能包装Config以支持热重载。
// 它提供对配置的线程安全访问，并支持在底层配置文件更改时进行动态更新。
type ViperConfig struct {
	*Config                     // Embedded configuration / 嵌入的配置
	viper       *viper.Viper    // Viper instance for configuration management / 用于配置管理的Viper实例
	configFile  string          // Path to the configuration file / 配置文件路径
	mu          sync.RWMutex    // Mutex for thread-safe access / 用于线程安全访问的互斥锁
	subscribers []func(*Config) // List of subscribers to notify on config changes / 配置更改时要通知的订阅者列表
	logger      *zap.Logger     // Logger for reload events / 重载事件日志记录器
	stop        chan struct{}   // Closed to stop the polling watcher / 关闭以停止轮询监视器
	stopOnce    sync.Once
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored. With no arguments ".env" is tried.
//
// LoadDotEnv 将给定文件中的KEY=VALUE对加载到进程环境中，不覆盖已设置的变量。
// 缺失的文件会被忽略。无参数时尝试".env"。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// NewViperConfig creates a new ViperConfig.
// It loads configuration from the specified file, applies STOREFRONT_*
// environment overrides and validates the result.
//
// NewViperConfig 创建一个新的ViperConfig。
// 它从指定的文件加载配置，应用STOREFRONT_*环境变量覆盖并验证结果。
//
// Parameters:
//   - configFile: Path to the configuration file
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading or validation fails
//
// 参数：
//   - configFile: 配置文件的路径
//
// 返回：
//   - *ViperConfig: 一个新的ViperConfig实例
//   - error: 如果加载或验证失败则返回错误
func NewViperConfig(configFile string) (*ViperConfig, error) {
	v := viper.New()

	// Set up viper
	// 设置viper
	v.SetConfigFile(configFile)
	ext := filepath.Ext(configFile)
	v.SetConfigType(strings.TrimPrefix(ext, "."))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	// Read the config file
	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &ViperConfig{
		Config:      config,
		viper:       v,
		configFile:  configFile,
		subscribers: make([]func(*Config), 0),
		logger:      zap.NewNop(),
		stop:        make(chan struct{}),
	}, nil
}

// decode unmarshals the viper state over the defaults and validates it.
func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()

	// Unmarshal the config file into the config struct
	// 将配置文件解析到配置结构中
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// SetLogger replaces the logger used for reload events.
//
// SetLogger 替换用于重载事件的日志记录器。
func (vc *ViperConfig) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vc.mu.Lock()
	vc.logger = logger
	vc.mu.Unlock()
}

// EnableHotReload enables hot reloading of the configuration file.
// When the configuration file changes, the configuration is automatically
// reloaded and all subscribers are notified.
//
// EnableHotReload 启用配置文件的热重载。
// 当配置文件更改时，配置会自动重新加载，并通知所有订阅者。
func (vc *ViperConfig) EnableHotReload() {
	vc.viper.OnConfigChange(func(e fsnotify.Event) {
		vc.log().Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		if _, err := vc.Reload(); err != nil {
			vc.log().Warn("config reload rejected", zap.Error(err))
		}
	})
	vc.viper.WatchConfig()
}

// Reload re-reads the configuration file and, when the result is valid and
// differs from the current configuration, swaps it in and notifies subscribers.
// It reports whether the configuration changed.
//
// Reload 重新读取配置文件，当结果有效且与当前配置不同时替换并通知订阅者。
// 返回配置是否发生了变化。
func (vc *ViperConfig) Reload() (bool, error) {
	if err := vc.viper.ReadInConfig(); err != nil {
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	newConfig, err := decode(vc.viper)
	if err != nil {
		return false, err
	}

	// Check if the config has changed
	// 检查配置是否已更改
	vc.mu.Lock()
	if configsEqual(vc.Config, newConfig) {
		vc.mu.Unlock()
		return false, nil
	}
	vc.Config = newConfig
	subscribers := make([]func(*Config), len(vc.subscribers))
	copy(subscribers, vc.subscribers)
	vc.mu.Unlock()

	// Notify subscribers
	// 通知订阅者
	for _, subscriber := range subscribers {
		subscriber(newConfig)
	}
	return true, nil
}

// Subscribe adds a subscriber that will be notified when the configuration changes.
// The subscriber function is called with the new configuration as its argument.
//
// Subscribe 添加一个在配置更改时将被通知的订阅者。
// 订阅者函数将以新配置作为其参数被调用。
//
// Parameters:
//   - subscriber: A function to call when the configuration changes
//
// 参数：
//   - subscriber: 配置更改时要调用的函数
func (vc *ViperConfig) Subscribe(subscriber func(*Config)) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.subscribers = append(vc.subscribers, subscriber)
}

// Get returns the current configuration.
// This method is thread-safe and can be called concurrently.
//
// Get 返回当前配置。
// 此方法是线程安全的，可以并发调用。
//
// Returns:
//   - *Config: The current configuration
//
// 返回：
//   - *Config: 当前配置
func (vc *ViperConfig) Get() *Config {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.Config
}

// Close stops a polling watcher started by LoadViperConfigWithWatcher.
//
// Close 停止由LoadViperConfigWithWatcher启动的轮询监视器。
func (vc *ViperConfig) Close() {
	vc.stopOnce.Do(func() { close(vc.stop) })
}

func (vc *ViperConfig) log() *zap.Logger {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.logger
}

// LoadViperConfig loads a configuration from a file using Viper.
// Hot reloading is enabled when extensions.hot_reload.enable is set in the
// file: fsnotify based by default, polling when watch_interval is positive.
//
// LoadViperConfig 使用Viper从文件加载配置。
// 当文件中设置了extensions.hot_reload.enable时启用热重载：
// 默认基于fsnotify，watch_interval为正时使用轮询。
//
// Parameters:
//   - configFile: Path to the configuration file
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading fails
//
// 参数：
//   - configFile: 配置文件的路径
//
// 返回：
//   - *ViperConfig: 一个新的ViperConfig实例
//   - error: 如果加载失败则返回错误
func LoadViperConfig(configFile string) (*ViperConfig, error) {
	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}

	hr := vc.Config.Extensions.HotReload
	switch {
	case !hr.Enable:
	case hr.WatchInterval > 0:
		vc.startPolling(hr.WatchInterval)
	default:
		vc.EnableHotReload()
	}

	return vc, nil
}

// LoadViperConfigWithWatcher loads a configuration from a file using Viper and sets up a watcher
// that periodically checks for changes in the configuration file.
// This is an alternative to fsnotify-based hot reloading and may be more reliable
// in environments where file system notifications are unreliable.
//
// LoadViperConfigWithWatcher 使用Viper从文件加载配置，并设置一个定期检查
// 配置文件变化的监视器。这是基于fsnotify的热重载的替代方案，在文件系统
// 通知不可靠的环境中可能更可靠。
//
// Parameters:
//   - configFile: Path to the configuration file
//   - watchInterval: How often to check for changes
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading fails
func LoadViperConfigWithWatcher(configFile string, watchInterval time.Duration) (*ViperConfig, error) {
	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}
	vc.startPolling(watchInterval)
	return vc, nil
}

func (vc *ViperConfig) startPolling(interval time.Duration) {
	// Start a goroutine to watch for changes
	// 启动一个goroutine来监视更改
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-vc.stop:
				return
			case <-ticker.C:
			}
			changed, err := vc.Reload()
			if err != nil {
				vc.log().Warn("config reload rejected", zap.Error(err))
				continue
			}
			if changed {
				vc.log().Info("config file changed", zap.String("file", vc.configFile))
			}
		}
	}()
}

// configsEqual checks if two configs are equal.
//
// configsEqual 检查两个配置是否相等。
//
// Parameters:
//   - c1: First configuration to compare
//   - c2: Second configuration to compare
//
// Returns:
//   - bool: True if the configurations are equal, false otherwise
func configsEqual(c1, c2 *Config) bool {
	return reflect.DeepEqual(c1, c2)
}
