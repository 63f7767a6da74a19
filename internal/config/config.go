package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppPort       string
	AppEnv        string
	DBDSN         string
	JWTSecret     string
	JWTExpiresMin int

	RedisAddr     string
	RedisPassword string

	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	LogLevel  string
	LogFormat string

	// ServiceFeePercent is the platform's cut of accepted offers, in whole
	// percent. Stored per fee record, so changing it never rewrites history.
	ServiceFeePercent int

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	feePct, _ := strconv.Atoi(get("SERVICE_FEE_PERCENT", "10"))
	rps, _ := strconv.ParseFloat(get("RATE_LIMIT_RPS", "20"), 64)
	burst, _ := strconv.Atoi(get("RATE_LIMIT_BURST", "40"))

	return Config{
		AppPort:       get("APP_PORT", "8080"),
		AppEnv:        get("APP_ENV", "development"),
		DBDSN:         must("DB_DSN"),
		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: expires,

		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),

		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),

		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "json"),

		ServiceFeePercent: feePct,

		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
