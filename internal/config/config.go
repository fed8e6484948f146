package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Translate   TranslateConfig   `mapstructure:"translate"`
	Storage     StorageConfig     `mapstructure:"storage"`
	RandomWords RandomWordsConfig `mapstructure:"random_words"`
	ImageSearch ImageSearchConfig `mapstructure:"image_search"`
	Audio       AudioConfig       `mapstructure:"audio"`
}

type ServerConfig struct {
	Port        int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	APIKey      string        `mapstructure:"api_key"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=mysql sqlite"`
	Path            string            `mapstructure:"path" validate:"required_if=Driver sqlite"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type BrowserConfig struct {
	ExecPath string `mapstructure:"exec_path"`
	Headless bool   `mapstructure:"headless"`
	// MaxPages bounds the number of tabs open at the same time.
	MaxPages       int      `mapstructure:"max_pages" validate:"gt=0"`
	ViewportWidth  int64    `mapstructure:"viewport_width" validate:"gt=0"`
	ViewportHeight int64    `mapstructure:"viewport_height" validate:"gt=0"`
	UserAgent      string   `mapstructure:"user_agent"`
	ExtraFlags     []string `mapstructure:"extra_flags"`
}

type TranslateConfig struct {
	URLTemplate              string        `mapstructure:"url_template" validate:"required,urltemplate,contains={query}"`
	PronunciationURLTemplate string        `mapstructure:"pronunciation_url_template" validate:"omitempty,urltemplate"`
	SourceLanguage           string        `mapstructure:"source_language" validate:"required"`
	TargetLanguage           string        `mapstructure:"target_language" validate:"required"`
	Timeout                  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PronunciationWait        time.Duration `mapstructure:"pronunciation_wait"`
	HoverSelector            string        `mapstructure:"hover_selector"`
	BatchPath                string        `mapstructure:"batch_path" validate:"required"`
	Breaker                  BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type StorageConfig struct {
	ImagesDirectory         string `mapstructure:"images_directory" validate:"required"`
	PronunciationsDirectory string `mapstructure:"pronunciations_directory" validate:"required"`
	MaxImageBytes           int    `mapstructure:"max_image_bytes"`
}

type RandomWordsConfig struct {
	File string `mapstructure:"file" validate:"required"`
}

type ImageSearchConfig struct {
	URLTemplate    string        `mapstructure:"url_template" validate:"omitempty,urltemplate"`
	Amount         int           `mapstructure:"amount" validate:"gte=0"`
	SubmitSelector string        `mapstructure:"submit_selector"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// IdleQuiet is how long the page must stay without requests before the
	// results are read.
	IdleQuiet time.Duration `mapstructure:"idle_quiet" validate:"gt=0"`
}

type AudioConfig struct {
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vocabox")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", filepath.Join("database", "dictionary.sqlite3"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "vocabox")
	v.SetDefault("database.username", "user")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.max_pages", 4)
	// The upstream page lays out its listen button differently below this size.
	v.SetDefault("browser.viewport_width", 600)
	v.SetDefault("browser.viewport_height", 600)
	v.SetDefault("translate.url_template", "https://translate.google.com/?sl={sourceLang}&tl={targetLang}&text={query}&op=translate")
	v.SetDefault("translate.pronunciation_url_template", "https://translate.google.com/translate_tts?ie=UTF-8&q={query}&tl=en&total=1&idx=0&textlen={queryLen}&tk={tk}&client=webapp")
	v.SetDefault("translate.source_language", "en")
	v.SetDefault("translate.target_language", "ru")
	v.SetDefault("translate.timeout", 20*time.Second)
	v.SetDefault("translate.pronunciation_wait", 5*time.Second)
	v.SetDefault("translate.hover_selector", `button[aria-label*="Listen"]`)
	v.SetDefault("translate.batch_path", "/batchexecute")
	v.SetDefault("translate.breaker.max_failures", 5)
	v.SetDefault("translate.breaker.open_timeout", time.Minute)
	v.SetDefault("storage.images_directory", "images")
	v.SetDefault("storage.pronunciations_directory", "pronunciations")
	v.SetDefault("storage.max_image_bytes", 5*1024*1024)
	v.SetDefault("random_words.file", filepath.Join("database", "random-words.json"))
	v.SetDefault("image_search.amount", 5)
	v.SetDefault("image_search.submit_selector", "button[type=submit]")
	v.SetDefault("image_search.timeout", 30*time.Second)
	v.SetDefault("image_search.idle_quiet", 500*time.Millisecond)
	v.SetDefault("audio.retry_attempts", 2)
	v.SetDefault("audio.timeout", 10*time.Second)

	// Secrets are bound to environment variables only (not from config file)
	if err := v.BindEnv("server.api_key", "VOCABOX_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind VOCABOX_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
