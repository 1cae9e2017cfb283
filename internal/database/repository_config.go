package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trading-autopilot/internal/autopilot"

	"github.com/jackc/pgx/v5"
)

// LoadAutomationConfig fetches the singleton automation config. When no
// config has ever been saved, the normalized default is returned.
func (db *DB) LoadAutomationConfig(ctx context.Context) (*autopilot.AutomationConfig, error) {
	cfg := autopilot.DefaultConfig()
	if db.Pool == nil {
		cfg.Normalize()
		return &cfg, nil
	}

	var data []byte
	err := db.Pool.QueryRow(ctx,
		`SELECT data FROM automation_config WHERE id = 1`,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			cfg.Normalize()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to load automation config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode automation config: %w", err)
	}

	cfg.Normalize()
	return &cfg, nil
}

// SaveAutomationConfig normalizes and persists the automation config
func (db *DB) SaveAutomationConfig(ctx context.Context, cfg *autopilot.AutomationConfig) error {
	cfg.Normalize()
	cfg.UpdatedAt = time.Now()

	if db.Pool == nil {
		return nil
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode automation config: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO automation_config (id, data, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		data, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save automation config: %w", err)
	}

	return nil
}
