package puzzle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/supabase-community/supabase-go"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/model"
)

// Gateway provides read-only access to puzzle content.
type Gateway interface {
	GetByID(ctx context.Context, puzzleID string) (*model.Puzzle, error)
	ListAll(ctx context.Context) ([]model.Puzzle, error)
}

// SupabaseGateway reads puzzles from the Supabase `puzzles` table. Puzzle
// content changes rarely, so reads go through a bounded-TTL Redis cache;
// stale entries age out rather than being served indefinitely.
type SupabaseGateway struct {
	sb  *supabase.Client
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewSupabaseGateway creates the puzzle gateway. rdb may be nil, which
// disables caching.
func NewSupabaseGateway(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) (*SupabaseGateway, error) {
	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("supabase URL and anon key are required")
	}

	sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}

	return &SupabaseGateway{
		sb:  sb,
		rdb: rdb,
		ttl: cfg.PuzzleCacheTTL,
		log: log.With().Str("component", "puzzle_gateway").Logger(),
	}, nil
}

// GetByID implements Gateway. Returns model.ErrPuzzleNotFound for unknown ids.
func (g *SupabaseGateway) GetByID(ctx context.Context, puzzleID string) (*model.Puzzle, error) {
	cacheKey := config.CacheKey.PuzzleKey(puzzleID)
	if cached := g.fromCache(ctx, cacheKey); cached != nil {
		var p model.Puzzle
		if err := json.Unmarshal(cached, &p); err == nil {
			return &p, nil
		}
	}

	var rows []model.Puzzle
	_, err := g.sb.From("puzzles").
		Select("*", "", false).
		Eq("id", puzzleID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query puzzle %s: %w", puzzleID, err)
	}
	if len(rows) == 0 {
		return nil, model.ErrPuzzleNotFound
	}

	g.toCache(ctx, cacheKey, &rows[0])
	return &rows[0], nil
}

// ListAll implements Gateway.
func (g *SupabaseGateway) ListAll(ctx context.Context) ([]model.Puzzle, error) {
	cacheKey := config.CacheKey.PuzzleListKey()
	if cached := g.fromCache(ctx, cacheKey); cached != nil {
		var puzzles []model.Puzzle
		if err := json.Unmarshal(cached, &puzzles); err == nil {
			return puzzles, nil
		}
	}

	var puzzles []model.Puzzle
	_, err := g.sb.From("puzzles").
		Select("*", "", false).
		Order("id", nil).
		ExecuteTo(&puzzles)
	if err != nil {
		return nil, fmt.Errorf("list puzzles: %w", err)
	}

	g.toCache(ctx, cacheKey, puzzles)
	return puzzles, nil
}

func (g *SupabaseGateway) fromCache(ctx context.Context, key string) []byte {
	if g.rdb == nil {
		return nil
	}
	raw, err := g.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	return raw
}

func (g *SupabaseGateway) toCache(ctx context.Context, key string, v any) {
	if g.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := g.rdb.Set(ctx, key, raw, g.ttl).Err(); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("puzzle cache write failed")
	}
}
