package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trading-autopilot/internal/positions"

	"github.com/jackc/pgx/v5"
)

// ErrPositionNotFound is returned when a position id does not exist.
var ErrPositionNotFound = errors.New("position not found")

const positionColumns = `
	id, symbol, strategy_id, signal, side, instrument, live, status, version,
	quantity, entry_price, stop_price, target, contract, broker,
	confidence, regime, closed_price, close_reason,
	opened_at, closed_at, expires_at, updated_at`

// CreatePosition inserts a new position record
func (db *DB) CreatePosition(ctx context.Context, p *positions.Position) error {
	if db.Pool == nil {
		return nil
	}

	contractJSON, brokerJSON, err := encodePositionBlobs(p)
	if err != nil {
		return err
	}

	now := time.Now()
	if p.OpenedAt.IsZero() {
		p.OpenedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO positions (
			id, symbol, strategy_id, signal, side, instrument, live, status, version,
			quantity, entry_price, stop_price, target, contract, broker,
			confidence, regime, closed_price, close_reason,
			opened_at, closed_at, expires_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23
		)`

	_, err = db.Pool.Exec(ctx, query,
		p.ID, p.Symbol, p.StrategyID, p.Signal, p.Side, p.Instrument, p.Live,
		p.Status, p.Version, p.Quantity, p.EntryPrice, p.StopPrice, p.Target,
		contractJSON, brokerJSON, p.Confidence, nullString(p.Regime),
		nullFloat(p.ClosedPrice), nullString(p.CloseReason),
		p.OpenedAt, p.ClosedAt, p.ExpiresAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}

	return nil
}

// GetPosition fetches one position by id
func (db *DB) GetPosition(ctx context.Context, id string) (*positions.Position, error) {
	if db.Pool == nil {
		return nil, ErrPositionNotFound
	}

	query := `SELECT` + positionColumns + ` FROM positions WHERE id = $1`

	p, err := scanPosition(db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	return p, nil
}

// ListPositionsByStatus returns all positions in any of the given statuses,
// oldest first
func (db *DB) ListPositionsByStatus(ctx context.Context, statuses ...positions.Status) ([]*positions.Position, error) {
	if db.Pool == nil {
		return nil, nil
	}

	query := `SELECT` + positionColumns + ` FROM positions WHERE status = ANY($1) ORDER BY opened_at ASC`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := db.Pool.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var result []*positions.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		result = append(result, p)
	}

	return result, rows.Err()
}

// ListRecentPositions returns the most recently opened positions
func (db *DB) ListRecentPositions(ctx context.Context, limit int) ([]*positions.Position, error) {
	if db.Pool == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT` + positionColumns + ` FROM positions ORDER BY opened_at DESC LIMIT $1`

	rows, err := db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent positions: %w", err)
	}
	defer rows.Close()

	var result []*positions.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		result = append(result, p)
	}

	return result, rows.Err()
}

// UpdatePosition writes a position back using optimistic concurrency.
// The update only applies when the stored version matches the version
// the caller read; on success the in-memory version is incremented.
func (db *DB) UpdatePosition(ctx context.Context, p *positions.Position) error {
	if db.Pool == nil {
		return nil
	}

	contractJSON, brokerJSON, err := encodePositionBlobs(p)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now()

	query := `
		UPDATE positions SET
			status = $3, version = version + 1, stop_price = $4, target = $5,
			contract = $6, broker = $7, closed_price = $8, close_reason = $9,
			closed_at = $10, expires_at = $11, updated_at = $12
		WHERE id = $1 AND version = $2`

	tag, err := db.Pool.Exec(ctx, query,
		p.ID, p.Version, p.Status, p.StopPrice, p.Target,
		contractJSON, brokerJSON,
		nullFloat(p.ClosedPrice), nullString(p.CloseReason),
		p.ClosedAt, p.ExpiresAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return positions.ErrVersionConflict
	}

	p.Version++
	return nil
}

// openStatuses are the statuses that still hold risk. Open-position
// counting and the already-active entry gate must agree on this set; a
// position with a pending exit order counts until the fill confirms.
var openStatuses = []string{
	string(positions.StatusActive),
	string(positions.StatusExitSubmitted),
}

// CountOpenPositions returns the number of non-terminal positions,
// total and per symbol
func (db *DB) CountOpenPositions(ctx context.Context) (int, map[string]int, error) {
	if db.Pool == nil {
		return 0, map[string]int{}, nil
	}

	query := `
		SELECT symbol, COUNT(*) FROM positions
		WHERE status = ANY($1)
		GROUP BY symbol`

	rows, err := db.Pool.Query(ctx, query, openStatuses)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count open positions: %w", err)
	}
	defer rows.Close()

	total := 0
	bySymbol := make(map[string]int)
	for rows.Next() {
		var symbol string
		var count int
		if err := rows.Scan(&symbol, &count); err != nil {
			return 0, nil, fmt.Errorf("failed to scan position count: %w", err)
		}
		bySymbol[symbol] = count
		total += count
	}

	return total, bySymbol, rows.Err()
}

// CountPositionsOpenedSince returns how many positions were opened at or
// after the given time
func (db *DB) CountPositionsOpenedSince(ctx context.Context, since time.Time) (int, error) {
	if db.Pool == nil {
		return 0, nil
	}

	var count int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM positions WHERE opened_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count positions opened since: %w", err)
	}

	return count, nil
}

// LastPositionTime returns when a position for (symbol, strategy) was
// last opened, or nil if there never was one
func (db *DB) LastPositionTime(ctx context.Context, symbol, strategyID string) (*time.Time, error) {
	if db.Pool == nil {
		return nil, nil
	}

	var t *time.Time
	err := db.Pool.QueryRow(ctx,
		`SELECT MAX(opened_at) FROM positions WHERE symbol = $1 AND strategy_id = $2`,
		symbol, strategyID,
	).Scan(&t)
	if err != nil {
		return nil, fmt.Errorf("failed to get last position time: %w", err)
	}

	return t, nil
}

// HasActivePosition reports whether a non-terminal position exists for
// (symbol, strategy). A position with a pending exit order still counts;
// it holds risk until the fill confirms.
func (db *DB) HasActivePosition(ctx context.Context, symbol, strategyID string) (bool, error) {
	if db.Pool == nil {
		return false, nil
	}

	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM positions
			WHERE symbol = $1 AND strategy_id = $2 AND status = ANY($3)
		)`,
		symbol, strategyID, openStatuses,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active position: %w", err)
	}

	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*positions.Position, error) {
	var p positions.Position
	var contractJSON, brokerJSON []byte
	var regime, closeReason *string
	var closedPrice *float64

	err := row.Scan(
		&p.ID, &p.Symbol, &p.StrategyID, &p.Signal, &p.Side, &p.Instrument,
		&p.Live, &p.Status, &p.Version, &p.Quantity, &p.EntryPrice,
		&p.StopPrice, &p.Target, &contractJSON, &brokerJSON,
		&p.Confidence, &regime, &closedPrice, &closeReason,
		&p.OpenedAt, &p.ClosedAt, &p.ExpiresAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(contractJSON) > 0 {
		var c positions.OptionContract
		if err := json.Unmarshal(contractJSON, &c); err != nil {
			return nil, fmt.Errorf("failed to decode contract: %w", err)
		}
		p.Contract = &c
	}
	if len(brokerJSON) > 0 {
		if err := json.Unmarshal(brokerJSON, &p.Broker); err != nil {
			return nil, fmt.Errorf("failed to decode broker info: %w", err)
		}
	}
	if regime != nil {
		p.Regime = *regime
	}
	if closedPrice != nil {
		p.ClosedPrice = *closedPrice
	}
	if closeReason != nil {
		p.CloseReason = *closeReason
	}

	return &p, nil
}

func encodePositionBlobs(p *positions.Position) ([]byte, []byte, error) {
	var contractJSON []byte
	if p.Contract != nil {
		b, err := json.Marshal(p.Contract)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode contract: %w", err)
		}
		contractJSON = b
	}

	brokerJSON, err := json.Marshal(p.Broker)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode broker info: %w", err)
	}

	return contractJSON, brokerJSON, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
