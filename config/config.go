package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv 读取 .env（不存在时忽略），已设置的环境变量优先
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("no .env loaded", "err", err)
	}
}

// Config 从环境变量读取
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisAddr string
	RedisPwd  string
	RedisDB   int

	WebOrigin  string
	RPID       string
	RPOrigins  []string
	SessionTTL time.Duration // webauthn ceremony
	AppTTL     time.Duration // login session
	SeenEvery  time.Duration

	LowStockThreshold int

	BootstrapCIN      string
	BootstrapPassword string
	BootstrapName     string

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3Prefix       string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string // CDN / 公共读地址，只用于拼 S3 图片 URL
	PublicBaseURL  string // API 自身地址，本地存储的 /uploads 挂在这里
	UploadDir      string
	MaxUploadBytes int64
}

// Load 读取当前进程环境；未设置的字段回落到默认值
func Load() Config {
	return Config{
		Port: get("PORT", "3001"),

		DBHost:     get("DB_HOST", "127.0.0.1"),
		DBPort:     get("DB_PORT", "5432"),
		DBUser:     get("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     get("DB_NAME", "tool_lending"),
		DBSSLMode:  get("DB_SSLMODE", "disable"),

		RedisAddr: get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:   getInt("REDIS_DB", 0),

		WebOrigin:  get("WEB_ORIGIN", "http://localhost:5173"),
		RPID:       get("RP_ID", "localhost"),
		RPOrigins:  splitCSV(get("RP_ORIGINS", "http://localhost:5173")),
		SessionTTL: getSeconds("SESSION_TTL_SECONDS", 10*time.Minute),
		AppTTL:     getSeconds("APP_SESSION_TTL_SECONDS", 24*time.Hour),
		SeenEvery:  getSeconds("LAST_SEEN_THROTTLE_SECONDS", 5*time.Minute),

		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 5),

		BootstrapCIN:      os.Getenv("BOOTSTRAP_ADMIN_CIN"),
		BootstrapPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapName:     get("BOOTSTRAP_ADMIN_NAME", "Administrateur"),

		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       get("S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Prefix:       get("S3_PREFIX", "pictures"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:    os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),
		PublicBaseURL:  os.Getenv("PUBLIC_BASE_URL"),
		UploadDir:      get("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_BYTES", 5<<20)),
	}
}

// DSN 组装 Postgres 连接串
func (c Config) DSN() string {
	parts := []string{
		"host=" + c.DBHost,
		"user=" + c.DBUser,
		"password=" + c.DBPassword,
		"dbname=" + c.DBName,
		"port=" + c.DBPort,
		"sslmode=" + c.DBSSLMode,
	}
	return strings.Join(parts, " ")
}

// SecureCookies: 前端走 https 时 Cookie 才加 Secure
func (c Config) SecureCookies() bool { return strings.HasPrefix(c.WebOrigin, "https://") }

func get(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env, using default", "key", k, "value", v)
		return def
	}
	return n
}

func getSeconds(k string, def time.Duration) time.Duration {
	n := getInt(k, -1)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
