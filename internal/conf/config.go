package conf

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AIConfig configures the completion source. Model is used for chat turns,
// DecisionModel for the constrained step-transition call, TitleModel for
// chat title generation.
type AIConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Model         string `mapstructure:"model"`
	DecisionModel string `mapstructure:"decision_model"`
	TitleModel    string `mapstructure:"title_model"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.AI.DecisionModel == "" {
		config.AI.DecisionModel = config.AI.Model
	}
	if config.AI.TitleModel == "" {
		config.AI.TitleModel = config.AI.Model
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
