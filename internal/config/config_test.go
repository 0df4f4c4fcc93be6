package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("PAYMENT_CURRENCY", "")
	t.Setenv("GUARANTEE_FEE", "")
	t.Setenv("NEWSLETTER_WORKERS", "")
	t.Setenv("NEWSLETTER_POLL_INTERVAL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("SITE_URL", "")

	cfg := FromEnv()

	assert.Equal(t, "8000", cfg.AppPort)
	assert.Equal(t, "eur", cfg.PaymentCurrency)
	assert.True(t, decimal.NewFromInt(50).Equal(cfg.GuaranteeFee))
	assert.Equal(t, 4, cfg.NewsletterWorkers)
	assert.Equal(t, 30*time.Second, cfg.NewsletterPollInterval)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "http://localhost:8000", cfg.SiteURL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("PAYMENT_CURRENCY", "USD")
	t.Setenv("GUARANTEE_FEE", "39.90")
	t.Setenv("NEWSLETTER_WORKERS", "8")
	t.Setenv("NEWSLETTER_POLL_INTERVAL", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SITE_URL", "https://api.example/")

	cfg := FromEnv()

	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, "39.9", cfg.GuaranteeFee.String())
	assert.Equal(t, 8, cfg.NewsletterWorkers)
	assert.Equal(t, 5*time.Second, cfg.NewsletterPollInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "https://api.example", cfg.SiteURL)
}

func TestFromEnv_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("GUARANTEE_FEE", "-3")
	t.Setenv("NEWSLETTER_WORKERS", "zero")
	t.Setenv("NEWSLETTER_POLL_INTERVAL", "soon")

	cfg := FromEnv()

	assert.True(t, decimal.NewFromInt(50).Equal(cfg.GuaranteeFee))
	assert.Equal(t, 4, cfg.NewsletterWorkers)
	assert.Equal(t, 30*time.Second, cfg.NewsletterPollInterval)
}
