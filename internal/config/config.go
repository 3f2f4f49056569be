package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Environment string
	ServerPort  string

	DBDriver    string
	MySQLDSN    string
	PostgresDSN string
	ResetDB     bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret       string
	TokenTTL        time.Duration
	BcryptCost      int
	HashConcurrency int

	SuperAdminEmail    string
	SuperAdminPassword string
	SuperAdminName     string

	WSAuthTimeout  time.Duration
	LoginRateLimit float64
	CORSOrigins    []string
	SwaggerHost    string
}

// Load builds Config from environment with sensible defaults. A .env file in
// the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment:        getEnv("APP_ENV", "development"),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		MySQLDSN:           getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/gymsync?charset=utf8mb4&parseTime=True&loc=Local"),
		PostgresDSN:        getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=gymsync port=5432 sslmode=disable"),
		ResetDB:            getEnvBool("RESET_DB", false),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisPass:          os.Getenv("REDIS_PASSWORD"),
		JWTSecret:          getEnv("JWT_SECRET", "change-me"),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 48*time.Hour),
		BcryptCost:         getEnvInt("BCRYPT_COST", 10),
		HashConcurrency:    getEnvInt("HASH_CONCURRENCY", runtime.NumCPU()),
		SuperAdminEmail:    getEnv("SUPER_ADMIN_EMAIL", "admin@gymsync.com"),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", "admin123"),
		SuperAdminName:     getEnv("SUPER_ADMIN_NAME", "Super Admin"),
		WSAuthTimeout:      getEnvDuration("WS_AUTH_TIMEOUT", 30*time.Second),
		LoginRateLimit:     getEnvFloat("LOGIN_RATE_LIMIT", 5),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		SwaggerHost:        os.Getenv("SWAGGER_HOST"),
	}
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
