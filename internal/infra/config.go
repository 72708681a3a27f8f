package infra

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/xela07ax/clickpulse/internal/domain"
)

// Config корневая структура конфигурации сервиса.
type Config struct {
	Server      ServerConfig          `mapstructure:"server"`
	Metrics     MetricsConfig         `mapstructure:"metrics"`
	API         APIConfig             `mapstructure:"api"`
	Reliability ReliabilityConfig     `mapstructure:"reliability"`
	Database    DatabaseConfig        `mapstructure:"database"`
	Redis       RedisConfig           `mapstructure:"redis"`
	History     HistoryConfig         `mapstructure:"history"`
	Logger      LoggerConfig          `mapstructure:"logger"`
	Units       map[string]UnitConfig `mapstructure:"units" validate:"dive"`
}

// ServerConfig описывает настройки HTTP-сервера консоли.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// APIConfig откуда юниты берут аналитику.
type APIConfig struct {
	Transport  string        `mapstructure:"transport" validate:"oneof=http grpc mock"`
	BaseURL    string        `mapstructure:"base_url" validate:"omitempty,url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	GRPCAddr   string        `mapstructure:"grpc_addr" validate:"required_if=Transport grpc"`
	GRPCMethod string        `mapstructure:"grpc_method"`
}

// ReliabilityConfig предохранитель, ретраи и лимитер вокруг транспорта.
type ReliabilityConfig struct {
	CBMaxRequests  uint32        `mapstructure:"cb_max_requests"`
	CBInterval     time.Duration `mapstructure:"cb_interval"`
	CBTimeout      time.Duration `mapstructure:"cb_timeout"`
	CBFailures     uint32        `mapstructure:"cb_failures"`
	RetryAttempts  uint          `mapstructure:"retry_attempts" validate:"min=1,max=10"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"min=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"min=0"`
}

// DatabaseConfig описывает подключение к PostgreSQL. Пустой URL — история не пишется.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns" validate:"min=0"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub и снимки). Пустой Addr — без Redis.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type HistoryConfig struct {
	BufferSize    int           `mapstructure:"buffer_size" validate:"min=0"`
	BatchSize     int           `mapstructure:"batch_size" validate:"min=0"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// UnitConfig стартовая конфигурация одного юнита (units.<domain>).
type UnitConfig struct {
	Enabled       *bool         `mapstructure:"enabled"` // nil = включён
	EntityID      string        `mapstructure:"entity_id"`
	Aggregate     bool          `mapstructure:"aggregate"`
	Realtime      bool          `mapstructure:"realtime"`
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"min=0"`
	MinClicks     int64         `mapstructure:"min_clicks" validate:"min=0"`
	Hours         *int          `mapstructure:"hours" validate:"omitempty,min=1,max=8760"`
	Days          *int          `mapstructure:"days" validate:"omitempty,min=1,max=3650"`
	IncludeCharts *bool         `mapstructure:"include_charts"`
	MinConfidence float64       `mapstructure:"min_confidence" validate:"min=0,max=1"`
	Categories    []string      `mapstructure:"categories"`
}

func (u UnitConfig) IsEnabled() bool { return u.Enabled == nil || *u.Enabled }

func (u UnitConfig) RequestConfig() domain.RequestConfig {
	return domain.RequestConfig{
		TargetEntityID: u.EntityID,
		Aggregate:      u.Aggregate,
		Realtime:       u.Realtime,
		PollInterval:   u.PollInterval,
		Filters: domain.Filters{
			Hours:         u.Hours,
			Days:          u.Days,
			IncludeCharts: u.IncludeCharts,
			MinClicks:     u.MinClicks,
			MinConfidence: u.MinConfidence,
			Categories:    u.Categories,
		},
	}
}

// UnitConfigs конфигурации включённых юнитов. Неизвестный домен — ошибка конфигурации.
func (c *Config) UnitConfigs() (map[domain.Kind]domain.RequestConfig, error) {
	out := make(map[domain.Kind]domain.RequestConfig, len(c.Units))
	var unknown []string
	for name, u := range c.Units {
		kind, ok := domain.ParseKind(strings.ToLower(name))
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if u.IsEnabled() {
			out[kind] = u.RequestConfig()
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown analytics domains in units: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator общий экземпляр, консоль валидирует им входящие конфигурации.
func Validator() *validator.Validate { return validate }

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.API.Transport == "http" && c.API.BaseURL == "" {
		return errors.New("invalid config: api.base_url is required for http transport")
	}
	if _, err := c.UnitConfigs(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// path пустой — ищем config.yaml в "." и "./configs".
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// 2. Переменные окружения перекрывают файл: API_BASE_URL перекроет api.base_url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("api.transport", "http")
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.grpc_addr", "")

	v.SetDefault("reliability.cb_max_requests", 3)
	v.SetDefault("reliability.cb_interval", 5*time.Second)
	v.SetDefault("reliability.cb_timeout", 30*time.Second)
	v.SetDefault("reliability.cb_failures", 5)
	v.SetDefault("reliability.retry_attempts", 3)
	v.SetDefault("reliability.retry_delay", 200*time.Millisecond)
	v.SetDefault("reliability.attempt_timeout", 10*time.Second)
	v.SetDefault("reliability.rate_limit", 50)
	v.SetDefault("reliability.rate_burst", 20)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.snapshot_ttl", 10*time.Minute)

	v.SetDefault("history.buffer_size", 10000)
	v.SetDefault("history.batch_size", 100)
	v.SetDefault("history.flush_interval", 500*time.Millisecond)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
