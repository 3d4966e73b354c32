package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	SMTP      SMTPConfig
	Cache     CacheConfig
	Token     TokenConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port    string
	BaseURL string // Публичный адрес сервиса для коротких ссылок и QR-кодов
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host string
	Port string
}

type AuthConfig struct {
	JWTSecret    string
	JWTExpiresIn time.Duration
}

type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

type CacheConfig struct {
	RedirectTTL time.Duration
	// CountCacheHits включает запись кликов при попадании в кэш редиректа
	CountCacheHits bool
}

type TokenConfig struct {
	TTL time.Duration // Время жизни одноразовых токенов
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	cfg.App.BaseURL = viper.GetString("APP_BASE_URL")
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}

	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")

	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")

	cfg.Auth.JWTSecret = viper.GetString("JWT_SECRET")
	cfg.Auth.JWTExpiresIn = viper.GetDuration("JWT_EXPIRES_IN")
	if cfg.Auth.JWTExpiresIn == 0 {
		cfg.Auth.JWTExpiresIn = 24 * time.Hour
	}

	cfg.SMTP.Host = viper.GetString("SMTP_HOST")
	cfg.SMTP.Port = viper.GetString("SMTP_PORT")
	cfg.SMTP.User = viper.GetString("SMTP_USER")
	cfg.SMTP.Pass = viper.GetString("SMTP_PASS")
	cfg.SMTP.From = viper.GetString("SMTP_FROM")
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}

	cfg.Cache.RedirectTTL = viper.GetDuration("CACHE_REDIRECT_TTL")
	if cfg.Cache.RedirectTTL == 0 {
		cfg.Cache.RedirectTTL = 15 * time.Minute
	}
	cfg.Cache.CountCacheHits = viper.GetBool("CACHE_COUNT_HITS")

	cfg.Token.TTL = viper.GetDuration("TOKEN_TTL")
	if cfg.Token.TTL == 0 {
		cfg.Token.TTL = 5 * time.Minute
	}

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	return &cfg, nil
}
