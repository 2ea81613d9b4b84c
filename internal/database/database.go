// Package database stores round snapshots in Postgres. Persistence is
// best-effort and runs off the engine's hot path; a nil pool disables it.
package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/recallhq/recall/internal/game"
	"github.com/recallhq/recall/internal/models"
)

// Persister writes initial deals and final results to Postgres.
type Persister struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// NewPersister wraps a connection pool. A nil pool yields a no-op persister.
func NewPersister(pool *pgxpool.Pool) *Persister {
	return &Persister{
		pool: pool,
		log:  logrus.WithField("component", "database"),
	}
}

// Connect opens a pool from a connection URL. An empty URL returns a nil
// pool so the server can run without Postgres.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, nil
	}
	return pgxpool.New(ctx, url)
}

type dealtHand struct {
	PlayerID uuid.UUID   `json:"playerId"`
	CardIDs  []uuid.UUID `json:"cardIds"`
}

// SaveInitialDeal records each player's dealt hand for post-game audits.
func (p *Persister) SaveInitialDeal(roomID string, gameID uuid.UUID, players []*models.Player) {
	if p == nil || p.pool == nil {
		return
	}
	hands := make([]dealtHand, 0, len(players))
	for _, pl := range players {
		h := dealtHand{PlayerID: pl.ID}
		for _, c := range pl.Hand {
			h.CardIDs = append(h.CardIDs, c.ID)
		}
		hands = append(hands, h)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		blob, err := json.Marshal(hands)
		if err != nil {
			p.log.WithError(err).Warn("failed to marshal initial deal")
			return
		}
		_, err = p.pool.Exec(ctx,
			`INSERT INTO game_states (room_id, game_id, initial_deal, created_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (game_id) DO UPDATE SET initial_deal = EXCLUDED.initial_deal`,
			roomID, gameID, blob)
		if err != nil {
			p.log.WithError(err).WithField("game_id", gameID).Warn("failed to store initial deal")
		}
	}()
}

// SaveResults records the final scores and winners.
func (p *Persister) SaveResults(roomID string, gameID uuid.UUID, results []game.PlayerResult) {
	if p == nil || p.pool == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		blob, err := json.Marshal(results)
		if err != nil {
			p.log.WithError(err).Warn("failed to marshal results")
			return
		}
		_, err = p.pool.Exec(ctx,
			`UPDATE game_states SET results = $1, ended_at = NOW() WHERE game_id = $2`,
			blob, gameID)
		if err != nil {
			p.log.WithError(err).WithField("game_id", gameID).Warn("failed to store results")
		}
	}()
}
