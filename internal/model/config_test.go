package model_test

import (
	"testing"
	"time"

	"github.com/modrac/pkgeval/internal/model"
	"github.com/stretchr/testify/require"
)

func validConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.Version = "1.2.0"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*model.Config)
	}{
		{"no depot", func(c *model.Config) { c.Depot = "" }},
		{"no version", func(c *model.Config) { c.Version = "" }},
		{"zero workers", func(c *model.Config) { c.Workers = 0 }},
		{"negative timeout", func(c *model.Config) { c.Timeout = -time.Second }},
		{"cron and every", func(c *model.Config) {
			c.Schedule.Cron = "* * * * *"
			c.Schedule.Every = "1h"
		}},
		{"bad cron", func(c *model.Config) { c.Schedule.Cron = "not a cron" }},
		{"bad every", func(c *model.Config) { c.Schedule.Every = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
