package config

import (
	"os"
)

type EpointConfig struct {
	APIURL    string
	PublicKey string
	SecretKey string
	TestMode  bool
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

type Config struct {
	Port        string
	DatabaseURL string
	FrontendURL string
	Development bool

	Epoint EpointConfig
	R2     R2Config
	FalKey string
}

func LoadConfig() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		Development: os.Getenv("APP_ENV") != "production",
	}

	cfg.Epoint.APIURL = getEnv("EPOINT_API_URL", "https://epoint.az/api/1")
	cfg.Epoint.PublicKey = os.Getenv("EPOINT_PUBLIC_KEY")
	cfg.Epoint.SecretKey = os.Getenv("EPOINT_SECRET_KEY")
	cfg.Epoint.TestMode = os.Getenv("EPOINT_TEST_MODE") == "true"

	cfg.R2.AccountID = os.Getenv("R2_ACCOUNT_ID")
	cfg.R2.AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2.SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	cfg.R2.Bucket = os.Getenv("R2_BUCKET")
	cfg.R2.PublicURL = os.Getenv("R2_PUBLIC_URL")

	cfg.FalKey = os.Getenv("FAL_KEY")

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
