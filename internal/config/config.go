package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	// Backend: "memory" или "postgres".
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

type ChatConfig struct {
	CompactThreshold int           `mapstructure:"compact_threshold"`
	CompactBlockSize int           `mapstructure:"compact_block_size"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

type ProviderConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	FolderID   string        `mapstructure:"folder_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	PricePer1K float64       `mapstructure:"price_per_1k"`
}

type ProvidersConfig struct {
	Yandex   ProviderConfig `mapstructure:"yandex"`
	DeepSeek ProviderConfig `mapstructure:"deepseek"`
}

func Load() (*Config, error) {
	// .env удобен в разработке; в проде переменные приходят из окружения.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Конфиг-файл опционален: дефолты плюс окружение достаточны.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "180s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Storage defaults
	viper.SetDefault("storage.backend", "memory")
	viper.SetDefault("storage.dsn", "")

	// Chat defaults
	viper.SetDefault("chat.compact_threshold", 10)
	viper.SetDefault("chat.compact_block_size", 10)
	viper.SetDefault("chat.request_timeout", "120s")

	// Provider defaults
	viper.SetDefault("providers.yandex.base_url", "https://llm.api.cloud.yandex.net/")
	viper.SetDefault("providers.yandex.timeout", "120s")
	viper.SetDefault("providers.yandex.price_per_1k", 0.006668)
	viper.SetDefault("providers.deepseek.base_url", "https://api.deepseek.com/v1")
	viper.SetDefault("providers.deepseek.timeout", "120s")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	backend := strings.ToLower(config.Storage.Backend)
	if backend != "memory" && backend != "postgres" {
		return fmt.Errorf("unsupported storage backend: %s", config.Storage.Backend)
	}
	if backend == "postgres" && strings.TrimSpace(config.Storage.DSN) == "" {
		return fmt.Errorf("storage DSN is required for postgres backend")
	}

	if config.Chat.CompactThreshold <= 0 {
		return fmt.Errorf("compact threshold must be positive: %d", config.Chat.CompactThreshold)
	}
	if config.Chat.CompactBlockSize <= 0 {
		return fmt.Errorf("compact block size must be positive: %d", config.Chat.CompactBlockSize)
	}
	if config.Chat.CompactBlockSize > config.Chat.CompactThreshold {
		return fmt.Errorf("compact block size %d exceeds threshold %d",
			config.Chat.CompactBlockSize, config.Chat.CompactThreshold)
	}

	for name, p := range map[string]ProviderConfig{
		"yandex":   config.Providers.Yandex,
		"deepseek": config.Providers.DeepSeek,
	} {
		if strings.TrimSpace(p.BaseURL) != "" && !strings.HasPrefix(p.BaseURL, "http") {
			return fmt.Errorf("%s base_url must start with http:// or https://", name)
		}
	}

	if strings.TrimSpace(config.Providers.Yandex.APIKey) != "" &&
		strings.TrimSpace(config.Providers.Yandex.FolderID) == "" {
		return fmt.Errorf("yandex folder_id is required when yandex api_key is set")
	}

	return nil
}

// GetConfigSource возвращает информацию о том, откуда взяты настройки
func GetConfigSource(config *Config) map[string]string {
	sources := make(map[string]string)

	sources["config_file"] = viper.ConfigFileUsed()
	sources["storage_backend"] = config.Storage.Backend

	if config.Providers.Yandex.APIKey != "" {
		sources["yandex"] = "configured"
	} else {
		sources["yandex"] = "api key not set"
	}
	if config.Providers.DeepSeek.APIKey != "" {
		sources["deepseek"] = "configured"
	} else {
		sources["deepseek"] = "api key not set"
	}

	return sources
}
