package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL    string       `mapstructure:"database_url"`
	ServerPort     string       `mapstructure:"server_port"`
	JWTSecret      string       `mapstructure:"jwt_secret"`
	AllowedOrigins []string     `mapstructure:"allowed_origins"`
	Email          EmailConfig  `mapstructure:"email"`
	Ingest         IngestConfig `mapstructure:"ingest"`
	OTP            OTPConfig    `mapstructure:"otp"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type IngestConfig struct {
	// AllowedRoles gates the bulk onboarding endpoint.
	AllowedRoles []string `mapstructure:"allowed_roles"`
}

type OTPConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if len(config.Ingest.AllowedRoles) == 0 {
		config.Ingest.AllowedRoles = []string{"hr", "admin"}
	}
	if config.OTP.TTL == 0 {
		config.OTP.TTL = 10 * time.Minute
	}

	return &config
}
