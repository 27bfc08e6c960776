package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

var _ domain.PositionStore = (*PositionStore)(nil)

// NewPositionStore creates a PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Create inserts a new open position.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (
			id, symbol, entry_price, quantity, entry_policy,
			high_water_price, pending_exit_since, opened_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Symbol, p.EntryPrice, p.Quantity, p.EntryPolicy,
		p.HighWaterPrice, p.PendingExitSince, p.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create position %s: %w", p.ID, err)
	}
	return nil
}

// UpdateRatchet persists the mutable trailing-stop fields.
func (s *PositionStore) UpdateRatchet(ctx context.Context, id string, highWater float64, pendingSince *time.Time) error {
	const query = `
		UPDATE positions SET
			high_water_price   = $2,
			pending_exit_since = $3,
			updated_at         = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, highWater, pendingSince)
	if err != nil {
		return fmt.Errorf("postgres: update ratchet for position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a position, typically after its sell filled.
func (s *PositionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListOpen returns all persisted positions for the symbol, oldest first, so
// the position book can be rebuilt on startup.
func (s *PositionStore) ListOpen(ctx context.Context, symbol string) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, entry_price, quantity, entry_policy,
		       high_water_price, pending_exit_since, opened_at
		FROM positions
		WHERE symbol = $1
		ORDER BY opened_at ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(
			&p.ID, &p.Symbol, &p.EntryPrice, &p.Quantity, &p.EntryPolicy,
			&p.HighWaterPrice, &p.PendingExitSince, &p.OpenedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	return positions, nil
}
