// Package config загружает конфигурацию сервера из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную из AdminIDsRaw
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт "postgres" (имя сервиса в docker-compose), для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"xueba"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"mingrixueba"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Points (баллы) ---
	// Срок жизни купленных баллов по умолчанию
	PointsDefaultExpiryDays int `envconfig:"POINTS_DEFAULT_EXPIRY_DAYS" default:"365"`
	// Порог "скоро сгорят" для предупреждений в боте
	PointsExpiringSoonDays int `envconfig:"POINTS_EXPIRING_SOON_DAYS" default:"30"`
	// Сколько раз движок повторяет операцию при конфликте транзакций
	PointsConflictRetries int `envconfig:"POINTS_CONFLICT_RETRIES" default:"3"`

	// --- Exchange (обмен семестров) ---
	// Стоимость семестра с одной предметной группой
	ExchangeCostSingle int64 `envconfig:"EXCHANGE_COST_SINGLE" default:"5"`
	// Стоимость семестра с несколькими предметными группами
	ExchangeCostDouble int64 `envconfig:"EXCHANGE_COST_DOUBLE" default:"10"`
	// Срок доступа к материалам после обмена, если тариф пользователя не points
	ExchangeAccessDays int `envconfig:"EXCHANGE_ACCESS_DAYS" default:"365"`

	// --- Membership ---
	MembershipDefaultDays int `envconfig:"MEMBERSHIP_DEFAULT_DAYS" default:"365"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Jobs ---
	// Ночная уборка сгоревших баллов (cron-выражение)
	SweepCronSpec string `envconfig:"SWEEP_CRON_SPEC" default:"30 3 * * *"`

	// --- Feature Flags ---
	FeatureExchangeEnabled bool `envconfig:"FEATURE_EXCHANGE_ENABLED" default:"true"`
	FeatureNoticesEnabled  bool `envconfig:"FEATURE_NOTICES_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.PointsDefaultExpiryDays <= 0 {
		return fmt.Errorf("POINTS_DEFAULT_EXPIRY_DAYS должен быть > 0")
	}
	if c.ExchangeCostSingle <= 0 || c.ExchangeCostDouble < c.ExchangeCostSingle {
		return fmt.Errorf("некорректные EXCHANGE_COST_SINGLE/EXCHANGE_COST_DOUBLE")
	}
	if c.PointsConflictRetries < 0 {
		return fmt.Errorf("POINTS_CONFLICT_RETRIES не может быть отрицательным")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
