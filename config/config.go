package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server
	Database   Database
	Log        Log
	Auth       Auth
	Gemini     Gemini
	Quiz       Quiz
	Upload     Upload
	Analytics  Analytics
	Suggestion Suggestion
}

type Server struct {
	Port             string
	GinMode          string
	CORSAllowOrigins []string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the libpq connection string used by the postgres driver.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type Log struct {
	Level  string
	Pretty bool
}

type Auth struct {
	JWTSecret string
	JWTIssuer string
}

type Gemini struct {
	APIKey string
	Model  string
}

type Quiz struct {
	DefaultSize int
	MaxSize     int
}

type Upload struct {
	MaxBytes           int64
	MaxRows            int
	CollapseWhitespace bool
}

type Analytics struct {
	ChurnInactiveDays int
}

type Suggestion struct {
	Timeout time.Duration
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("CORS_ALLOW_ORIGINS", "*")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", true)
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("SUGGESTION_TIMEOUT", "8s")
	viper.SetDefault("QUIZ_DEFAULT_SIZE", 10)
	viper.SetDefault("QUIZ_MAX_SIZE", 50)
	viper.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	viper.SetDefault("UPLOAD_MAX_ROWS", 2000)
	viper.SetDefault("UPLOAD_COLLAPSE_WHITESPACE", true)
	viper.SetDefault("CHURN_INACTIVE_DAYS", 30)
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Server.GinMode = viper.GetString("GIN_MODE")
	config.Server.CORSAllowOrigins = splitList(viper.GetString("CORS_ALLOW_ORIGINS"))

	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")
	config.Database.SSLMode = viper.GetString("DATABASE_SSLMODE")

	config.Log.Level = viper.GetString("LOG_LEVEL")
	config.Log.Pretty = viper.GetBool("LOG_PRETTY")

	config.Auth.JWTSecret = viper.GetString("AUTH_JWT_SECRET")
	config.Auth.JWTIssuer = viper.GetString("AUTH_JWT_ISSUER")

	config.Gemini.APIKey = viper.GetString("GEMINI_API_KEY")
	config.Gemini.Model = viper.GetString("GEMINI_MODEL")
	config.Suggestion.Timeout = viper.GetDuration("SUGGESTION_TIMEOUT")

	config.Quiz.DefaultSize = viper.GetInt("QUIZ_DEFAULT_SIZE")
	config.Quiz.MaxSize = viper.GetInt("QUIZ_MAX_SIZE")

	config.Upload.MaxBytes = viper.GetInt64("UPLOAD_MAX_BYTES")
	config.Upload.MaxRows = viper.GetInt("UPLOAD_MAX_ROWS")
	config.Upload.CollapseWhitespace = viper.GetBool("UPLOAD_COLLAPSE_WHITESPACE")

	config.Analytics.ChurnInactiveDays = viper.GetInt("CHURN_INACTIVE_DAYS")

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Info().Interface("config", config.Redacted()).Msg("Config loaded")
	return &config, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET must be set")
	}
	if c.Quiz.DefaultSize <= 0 || c.Quiz.MaxSize < c.Quiz.DefaultSize {
		return fmt.Errorf("invalid quiz size settings: default=%d max=%d", c.Quiz.DefaultSize, c.Quiz.MaxSize)
	}
	// A zero limit would reject every upload.
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.MaxRows <= 0 {
		return fmt.Errorf("UPLOAD_MAX_ROWS must be positive, got %d", c.Upload.MaxRows)
	}
	return nil
}

// Redacted returns a copy that is safe to log.
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = "***"
	}
	if c.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = "***"
	}
	if c.Gemini.APIKey != "" {
		c.Gemini.APIKey = "***"
	}
	return c
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
