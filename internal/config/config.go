package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env             string `yaml:"env" env-default:"local"`
	StoragePath     string `yaml:"storage_path" env-required:"true"`
	RedisAddr       string `yaml:"redis_addr" env-default:"localhost:6379"`
	DefaultTimezone string `yaml:"default_timezone" env-default:"UTC"`
	HTTPServer      `yaml:"http_server"`
	MagicLink       MagicLink `yaml:"magic_link"`
	Calendar        Calendar  `yaml:"calendar"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type MagicLink struct {
	Secret string        `yaml:"secret" env:"MAGIC_LINK_SECRET" env-required:"true"`
	TTL    time.Duration `yaml:"ttl" env-default:"48h"`
	// IssuesPerHour caps magic-link issuance per customer email.
	IssuesPerHour int64 `yaml:"issues_per_hour" env-default:"10"`
}

type Calendar struct {
	Google  OAuthClient `yaml:"google"`
	Outlook OAuthClient `yaml:"outlook"`
	Teams   OAuthClient `yaml:"teams"`
}

type OAuthClient struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

func MustLoad() *Config {
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	return &cfg
}
