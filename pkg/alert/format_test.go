package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedup(t *testing.T) {
	alerts := []Alert{
		{Product: "akwesan", OfferID: "111", Price: 39.99},
		{Product: "akwesan", OfferID: "111", Price: 38.00},
		{Product: "starter", OfferID: "111", Price: 39.99},
		{Product: "akwesan", OfferID: "222", Price: 12.00},
	}
	out := Dedup(alerts)
	require.Len(t, out, 3)
	assert.InDelta(t, 39.99, out[0].Price, 0.001, "first occurrence wins")
}

func TestSubject(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "[ALLEGRO] Zaniżone ceny: 2 aukcje/aukcji (2025-03-01 12:30:00)",
		Subject("", 2, now))
	assert.Equal(t, "custom", Subject("custom", 2, now))
}

func TestBody(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	alerts := []Alert{
		{Product: "akwesan", OfferID: "111", Price: 39.99, MinPrice: 40, URL: "https://allegro.pl/oferta/111"},
		{Product: "starter", OfferID: "222", Price: 9.5, MinPrice: 10},
	}
	body := Body(alerts, now)

	assert.Contains(t, body, "Znaleziono 2 zaniżonych pozycji.")
	assert.Contains(t, body, "Czas: 2025-03-01 12:30:00")
	assert.Contains(t, body, "• akwesan | aukcja 111 | cena: 39.99 zł (min: 40.00 zł)")
	assert.Contains(t, body, "https://allegro.pl/oferta/111")
	assert.Contains(t, body, "• starter | aukcja 222 | cena: 9.50 zł (min: 10.00 zł)")
}

func TestSMTPConfigValidate(t *testing.T) {
	valid := SMTPConfig{
		Host:     "smtp.gmail.com",
		Port:     587,
		Username: "user@example.com",
		Password: "secret",
		To:       []string{"dest@example.com"},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*SMTPConfig)
	}{
		{"missing host", func(c *SMTPConfig) { c.Host = "" }},
		{"missing port", func(c *SMTPConfig) { c.Port = 0 }},
		{"missing username", func(c *SMTPConfig) { c.Username = "" }},
		{"missing password", func(c *SMTPConfig) { c.Password = "" }},
		{"missing recipients", func(c *SMTPConfig) { c.To = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewEmailSender_DefaultsFromToUsername(t *testing.T) {
	s, err := NewEmailSender(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user@example.com",
		Password: "secret",
		To:       []string{"dest@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", s.cfg.From)
}
