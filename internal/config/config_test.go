package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(contents), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Game.CardsPerPlayer)
	assert.NotEmpty(t, cfg.Deck.Suits, "standard deck when none configured")

	gc := cfg.GameConfig()
	assert.Equal(t, 5*time.Second, gc.SameRankWindow)
	assert.Equal(t, 15*time.Second, gc.TurnTimer)
}

func TestLoadFromFile(t *testing.T) {
	dir := writeConfig(t, `
server:
  addr: ":9999"
game:
  cards_per_player: 6
  turn_timer_sec: 30
`)
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 6, cfg.Game.CardsPerPlayer)
	assert.Equal(t, 30*time.Second, cfg.GameConfig().TurnTimer)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.Game.SameRankWindowSec)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RECALL_SERVER_ADDR", ":7777")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
}

func TestLoadRejectsInvalidDeck(t *testing.T) {
	dir := writeConfig(t, `
deck:
  suits: [hearts, hearts]
  ranks:
    "5":
      points: 5
      quantity_per_suit: 1
`)
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := writeConfig(t, "server: [not: a map")
	_, err := Load(dir)
	assert.Error(t, err)
}
