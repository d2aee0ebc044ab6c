package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Line      LineConfig      `mapstructure:"line"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Templates TemplatesConfig `mapstructure:"templates"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LineConfig struct {
	ChannelSecret string `mapstructure:"channel_secret"`
	ChannelToken  string `mapstructure:"channel_token"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

type StorageConfig struct {
	// Backend selects memory, redis or postgres.
	Backend  string         `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres DatabaseConfig `mapstructure:"postgres"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type QuizConfig struct {
	// Mode is one of unlabeled, scam_only, real_only, either.
	Mode string `mapstructure:"mode"`
	// Analyzer is llm or rules.
	Analyzer    string            `mapstructure:"analyzer"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
}

type LeaderboardConfig struct {
	// Style is marker or me.
	Style     string `mapstructure:"style"`
	NameWidth int    `mapstructure:"name_width"`
}

type TemplatesConfig struct {
	FakeURLSource    string `mapstructure:"fake_url_source"`
	FeedCacheMinutes int    `mapstructure:"feed_cache_minutes"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 400)
	v.SetDefault("openai.temperature", 0.8)
	v.SetDefault("openai.timeout_seconds", 12)
	v.SetDefault("quiz.mode", "either")
	v.SetDefault("quiz.analyzer", "llm")
	v.SetDefault("quiz.leaderboard.style", "marker")
	v.SetDefault("quiz.leaderboard.name_width", 12)
	v.SetDefault("templates.feed_cache_minutes", 60)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Storage.Postgres = dbConfig
	}

	// Get other environment variables
	if secret := v.GetString("LINE_CHANNEL_SECRET"); secret != "" {
		config.Line.ChannelSecret = secret
	}

	if token := v.GetString("LINE_CHANNEL_ACCESS_TOKEN"); token != "" {
		config.Line.ChannelToken = token
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if addr := v.GetString("REDIS_ADDR"); addr != "" {
		config.Storage.Redis.Addr = addr
	}

	return &config, nil
}
