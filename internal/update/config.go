package update

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/adamhollisterbot/water-tracker/internal/model"
)

type RuntimeConfig struct {
	DBPath               string `env:"WATER_TRACKER_DB_PATH" envDefault:"water-tracker.db"`
	LogPath              string `env:"WATER_TRACKER_LOG_PATH" envDefault:"water-tracker.log"`
	LogLevel             string `env:"WATER_TRACKER_LOG_LEVEL" envDefault:"info"`
	GlassML              int    `env:"WATER_TRACKER_GLASS_ML" envDefault:"250"`
	DailyGoalML          int    `env:"WATER_TRACKER_DAILY_GOAL_ML" envDefault:"2000"`
	OverflowML           int    `env:"WATER_TRACKER_OVERFLOW_ML" envDefault:"1000"`
	DesktopNotifications bool   `env:"WATER_TRACKER_DESKTOP_NOTIFICATIONS" envDefault:"false"`
	RolloverBuffer       int    `env:"WATER_TRACKER_ROLLOVER_BUFFER" envDefault:"4"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DBPath:         "water-tracker.db",
		LogPath:        "water-tracker.log",
		LogLevel:       "info",
		GlassML:        model.DefaultGlassML,
		DailyGoalML:    model.DefaultGoalML,
		OverflowML:     model.DefaultOverflowML,
		RolloverBuffer: 4,
	}
}

// LoadRuntimeConfig reads the environment over the defaults.
func LoadRuntimeConfig() (RuntimeConfig, error) {
	var cfg RuntimeConfig
	if err := env.Parse(&cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Goal().Validate(); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

func (c RuntimeConfig) Goal() model.Goal {
	return model.Goal{
		GlassML: c.GlassML,
		GoalML:  c.DailyGoalML,
		MaxML:   c.DailyGoalML + c.OverflowML,
	}
}
