package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv  string
	AppPort string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	JWTSecret string

	StripeSecretKey string
	StripeAPIBase   string
	PaymentCurrency string
	GuaranteeFee    decimal.Decimal

	SiteURL         string
	FrontendSiteURL string
	MediaRoot       string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	AdminEmail   string

	RecaptchaSecret string

	CORSAllowedOrigins []string
	InternalSecretKey  string

	NewsletterWorkers      int
	NewsletterPollInterval time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := FromEnv()

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

// FromEnv reads the configuration without loading .env or validating it.
func FromEnv() *Config {
	return &Config{
		AppEnv:  os.Getenv("APP_ENV"),
		AppPort: getEnv("APP_PORT", "8000"),

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		StripeAPIBase:   getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
		PaymentCurrency: strings.ToLower(getEnv("PAYMENT_CURRENCY", "eur")),
		GuaranteeFee:    getDecimal("GUARANTEE_FEE", decimal.NewFromInt(50)),

		SiteURL:         strings.TrimRight(getEnv("SITE_URL", "http://localhost:8000"), "/"),
		FrontendSiteURL: strings.TrimRight(getEnv("FRONTEND_SITE_URL", "http://localhost:5173"), "/"),
		MediaRoot:       getEnv("MEDIA_ROOT", "media"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),
		AdminEmail:   os.Getenv("ADMIN_EMAIL"),

		RecaptchaSecret: os.Getenv("RECAPTCHA_SECRET_KEY"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		InternalSecretKey:  os.Getenv("INTERNAL_SECRET_KEY"),

		NewsletterWorkers:      getInt("NEWSLETTER_WORKERS", 4),
		NewsletterPollInterval: getDuration("NEWSLETTER_POLL_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(os.Getenv(key))
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
