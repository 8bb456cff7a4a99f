// ABOUTME: Tool-call audit entity and store methods
// ABOUTME: Records who invoked which tool with what outcome for debugging

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a tool call ended.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeError  Outcome = "error"
	OutcomeDenied Outcome = "denied"
)

// ToolCall represents a single audited tool invocation.
type ToolCall struct {
	ID        string        // UUID v4
	CallerID  string        // who invoked the tool
	Tool      string        // tool name
	RequestID string        // JSON-RPC request id, stringified
	Outcome   Outcome       // how the call ended
	Error     string        // error message, empty on success
	Duration  time.Duration // handler execution time
	Timestamp time.Time     // when it happened
}

// CallFilter specifies filtering options for listing tool calls.
type CallFilter struct {
	Since *time.Time // entries after this time
	Tool  *string    // filter by tool name
	Limit int        // max results (default 100, max 1000)
}

// RecordToolCall appends a call record. Generates ID and Timestamp if unset.
func (s *SQLiteStore) RecordToolCall(ctx context.Context, c *ToolCall) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}

	var errText *string
	if c.Error != "" {
		errText = &c.Error
	}

	query := `
		INSERT INTO tool_calls (call_id, caller_id, tool, request_id, outcome, error, duration_ms, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.CallerID,
		c.Tool,
		c.RequestID,
		string(c.Outcome),
		errText,
		c.Duration.Milliseconds(),
		c.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting tool call: %w", err)
	}

	s.logger.Debug("recorded tool call",
		"id", c.ID,
		"caller", c.CallerID,
		"tool", c.Tool,
		"outcome", c.Outcome,
	)
	return nil
}

// normalizeCallLimit applies default (100) and cap (1000) to the limit.
func normalizeCallLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// ListToolCalls returns call records matching the filter, newest first.
func (s *SQLiteStore) ListToolCalls(ctx context.Context, f CallFilter) ([]ToolCall, error) {
	var sinceStr *string
	if f.Since != nil {
		str := f.Since.UTC().Format(time.RFC3339)
		sinceStr = &str
	}

	query := `
		SELECT call_id, caller_id, tool, request_id, outcome, error, duration_ms, ts
		FROM tool_calls
		WHERE (? IS NULL OR ts >= ?)
		  AND (? IS NULL OR tool = ?)
		ORDER BY ts DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query,
		sinceStr, sinceStr,
		f.Tool, f.Tool,
		normalizeCallLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying tool calls: %w", err)
	}
	defer rows.Close()

	var out []ToolCall
	for rows.Next() {
		var c ToolCall
		var outcomeStr, tsStr string
		var errText *string
		var durationMS int64

		if err := rows.Scan(
			&c.ID,
			&c.CallerID,
			&c.Tool,
			&c.RequestID,
			&outcomeStr,
			&errText,
			&durationMS,
			&tsStr,
		); err != nil {
			return nil, fmt.Errorf("scanning tool call: %w", err)
		}

		c.Outcome = Outcome(outcomeStr)
		if errText != nil {
			c.Error = *errText
		}
		c.Duration = time.Duration(durationMS) * time.Millisecond
		c.Timestamp, err = time.Parse(time.RFC3339, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
