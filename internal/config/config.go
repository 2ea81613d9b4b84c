// Package config loads server settings and the deck specification from
// YAML and the environment. The engine never reads files; it consumes the
// parsed structures produced here.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/recallhq/recall/internal/deck"
	"github.com/recallhq/recall/internal/game"
)

// Config is the full server configuration.
type Config struct {
	Server struct {
		Addr      string `mapstructure:"addr"`
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"server"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`

	Game struct {
		CardsPerPlayer        int `mapstructure:"cards_per_player"`
		SameRankWindowSec     int `mapstructure:"same_rank_window_sec"`
		TurnTimerSec          int `mapstructure:"turn_timer_sec"`
		RecallAllowedFromTurn int `mapstructure:"recall_allowed_from_turn"`
	} `mapstructure:"game"`

	Deck deck.Spec `mapstructure:"deck"`
}

// Load reads .env, then the YAML config file, then RECALL_* environment
// overrides. A missing config file falls back to defaults; a malformed
// one is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("game.cards_per_player", 4)
	v.SetDefault("game.same_rank_window_sec", 5)
	v.SetDefault("game.turn_timer_sec", 15)
	v.SetDefault("game.recall_allowed_from_turn", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logrus.Info("no config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Deck.Suits) == 0 {
		cfg.Deck = deck.StandardSpec()
	} else if res := deck.Validate(cfg.Deck); !res.Valid {
		return nil, fmt.Errorf("deck spec invalid: %v", res.Errors)
	} else {
		for _, w := range res.Warnings {
			logrus.Warnf("deck spec: %s", w)
		}
	}
	return &cfg, nil
}

// GameConfig converts the configured values to engine parameters.
func (c *Config) GameConfig() game.Config {
	return game.Config{
		CardsPerPlayer:        c.Game.CardsPerPlayer,
		SameRankWindow:        time.Duration(c.Game.SameRankWindowSec) * time.Second,
		TurnTimer:             time.Duration(c.Game.TurnTimerSec) * time.Second,
		RecallAllowedFromTurn: c.Game.RecallAllowedFromTurn,
	}
}
