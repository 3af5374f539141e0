package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

func TestParseDefaultHours(t *testing.T) {
	hours, err := ParseDefaultHours("baixa:72, media:24,alta:8.5,critica:4,")
	require.NoError(t, err)
	assert.Equal(t, map[domain.TicketPriority]float64{
		domain.TicketPriorityLow:      72,
		domain.TicketPriorityMedium:   24,
		domain.TicketPriorityHigh:     8.5,
		domain.TicketPriorityCritical: 4,
	}, hours)
}

func TestParseDefaultHoursRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"urgente:4", "alta", "alta:x", "alta:0", "alta:-2"} {
		_, err := ParseDefaultHours(raw)
		assert.Error(t, err, raw)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("SLA_DEFAULT_HOURS", "")
	t.Setenv("SLA_DEFAULT_TIMEZONE", "")
	t.Setenv("SLA_WARNING_PERCENT", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", cfg.SLA.DefaultTimeZone)
	assert.Equal(t, 80.0, cfg.SLA.WarningPercent)
	assert.Equal(t, 3, cfg.SLA.MaxEscalationLevel)
	assert.Equal(t, 4.0, cfg.SLA.DefaultHours[domain.TicketPriorityCritical])
	assert.Equal(t, 24*time.Hour, cfg.SLA.WarningDedupTTL)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadRejectsUnknownTimeZone(t *testing.T) {
	t.Setenv("SLA_DEFAULT_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}
