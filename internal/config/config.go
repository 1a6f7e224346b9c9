// Package config はサーバー設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Driver はストアのバックエンド名です。
type Driver string

const (
	DriverMongo    Driver = "mongo"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverMemory   Driver = "memory"
)

type DBConfig struct {
	Driver Driver `yaml:"driver" env:"DB_DRIVER" env-default:"mongo"`
	URL    string `yaml:"url" env:"DATABASE_URL"`
	Name   string `yaml:"name" env:"DB_NAME" env-default:"tasktrail"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	JWTExpire string `yaml:"jwt_expire" env:"JWT_EXPIRE" env-default:"7d"`
}

type Config struct {
	LogLevel   string     `yaml:"log_level" env:"LOG_LEVEL" env-default:"INFO"`
	Env        string     `yaml:"env" env:"APP_ENV" env-default:"production"`
	Port       string     `yaml:"port" env:"PORT" env-default:"5000"`
	ClientURLs []string   `yaml:"client_url" env:"CLIENT_URL" env-separator:"," env-default:"http://localhost:3000"`
	DB         DBConfig   `yaml:"db"`
	Auth       AuthConfig `yaml:"auth"`
}

// IsDevelopment は内部エラーの詳細をクライアントに返すかどうかを返します。
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Addr はリッスンアドレスを返します。
func (c Config) Addr() string {
	return ":" + c.Port
}

// AllowedOrigins はCORSで許可するオリジンを返します。前後の空白を除き、空の要素は捨てます。
func (c Config) AllowedOrigins() []string {
	origins := make([]string, 0, len(c.ClientURLs))
	for _, o := range c.ClientURLs {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// TokenLifetime はJWT_EXPIREを解釈します。"7d"、"12h"、秒数のいずれかを受け付けます。
func (c Config) TokenLifetime() (time.Duration, error) {
	return ParseLifetime(c.Auth.JWTExpire)
}

// ParseLifetime はトークン有効期間の文字列を解釈します。
func ParseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty token lifetime")
	}
	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid token lifetime %q: %w", s, err)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else if secs, err := strconv.Atoi(s); err == nil {
		d = time.Duration(secs) * time.Second
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid token lifetime %q: %w", s, err)
		}
		d = parsed
	}
	if d <= 0 {
		return 0, fmt.Errorf("token lifetime %q must be positive", s)
	}
	return d, nil
}

// Validate は環境変数の組み合わせを検証します。
func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverMongo, DriverMySQL, DriverPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %q", c.DB.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET environment variable not set")
	}
	if _, err := c.TokenLifetime(); err != nil {
		return err
	}
	origins := c.AllowedOrigins()
	if len(origins) == 0 {
		return errors.New("CLIENT_URL must name at least one origin")
	}
	for _, o := range origins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("invalid CLIENT_URL origin %q: must start with http:// or https://", o)
		}
	}
	return nil
}

// Load は.envを読み込んだ後、設定ファイル（あれば）と環境変数から設定を読み込みます。
func Load(configPath string) (Config, error) {
	// .envが無くてもエラーにしない
	_ = godotenv.Load()

	var cfg Config
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return Config{}, fmt.Errorf("cannot read config %q: %w", configPath, err)
		}
		// ファイルが無い場合は環境変数のみ
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.ClientURLs = cfg.AllowedOrigins()
	return cfg, nil
}

// MustLoad はLoadに失敗した場合にプロセスを終了します。
func MustLoad(configPath string) Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	return cfg
}
