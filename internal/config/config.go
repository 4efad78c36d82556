package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	TransportPolling = "polling"
	TransportWebhook = "webhook"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`

	Redis RedisConfig

	// Deployment platform flags. Logged at startup, not used by the bot.
	RunAsRoot bool `env:"RAILWAY_RUN_AS_ROOT" envDefault:"true"`
	RunUID    int  `env:"RAILWAY_RUN_UID" envDefault:"0"`

	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"json"`

	Transport     string `env:"TRANSPORT" envDefault:"polling"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Workers       int    `env:"WORKERS" envDefault:"16"`

	ChallengeSingleUse bool          `env:"CHALLENGE_SINGLE_USE" envDefault:"false"`
	ChallengeTTL       time.Duration `env:"CHALLENGE_TTL" envDefault:"24h"`
}

type RedisConfig struct {
	URL      string `env:"REDIS_URL"`
	Host     string `env:"REDISHOST" envDefault:"localhost"`
	Port     int    `env:"REDISPORT" envDefault:"6379"`
	User     string `env:"REDISUSER" envDefault:"default"`
	Password string `env:"REDISPASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Load reads an optional .env file from the working directory and then parses
// the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	switch c.Transport {
	case TransportPolling:
	case TransportWebhook:
		if c.WebhookURL == "" || c.WebhookSecret == "" {
			return errors.New("webhook transport requires WEBHOOK_URL and WEBHOOK_SECRET")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.ChallengeSingleUse && c.ChallengeTTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL must be positive, got %s", c.ChallengeTTL)
	}
	return nil
}
