package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AnalysisResult is one persisted analysis outcome. Result holds the final
// AI output verbatim; token counts and cost come from the provider usage.
type AnalysisResult struct {
	ID           string          `json:"id"`
	Platform     string          `json:"platform"`
	Title        *string         `json:"title,omitempty"`
	Result       json.RawMessage `json:"result"`
	InputTokens  int64           `json:"input_tokens"`
	OutputTokens int64           `json:"output_tokens"`
	CostUSD      decimal.Decimal `json:"cost_usd"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SaveResult inserts a completed analysis. The caller supplies the ID so it
// can be announced on the event stream before persistence finishes.
func (db *DB) SaveResult(ctx context.Context, r *AnalysisResult) error {
	query := `
		INSERT INTO analysis_results (id, platform, title, result, input_tokens, output_tokens, cost_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, query,
		r.ID,
		r.Platform,
		r.Title,
		[]byte(r.Result),
		r.InputTokens,
		r.OutputTokens,
		r.CostUSD,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis result: %w", err)
	}
	return nil
}

// GetResult retrieves a persisted analysis by ID.
func (db *DB) GetResult(ctx context.Context, id string) (*AnalysisResult, error) {
	query := `
		SELECT id, platform, title, result, input_tokens, output_tokens, cost_usd, created_at
		FROM analysis_results
		WHERE id = $1
	`

	var r AnalysisResult
	var result []byte
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&r.ID,
		&r.Platform,
		&r.Title,
		&result,
		&r.InputTokens,
		&r.OutputTokens,
		&r.CostUSD,
		&r.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrResultNotFound
		}
		// PostgreSQL rejects malformed UUIDs with a syntax error; treat
		// them the same as unknown IDs.
		if strings.Contains(err.Error(), "invalid input syntax for type uuid") {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}
	r.Result = result

	return &r, nil
}
