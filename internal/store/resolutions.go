package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lox/skycast/internal/forecast"
	"github.com/lox/skycast/internal/models"
)

// RecordResolution appends an attempt to the resolution journal.
func (s *Store) RecordResolution(ctx context.Context, r models.Resolution) error {
	var errMsg, city, condition sql.NullString
	if r.ErrorMessage != "" {
		errMsg = sql.NullString{String: r.ErrorMessage, Valid: true}
	}
	if r.City != "" {
		city = sql.NullString{String: r.City, Valid: true}
	}
	if r.Condition != "" {
		condition = sql.NullString{String: string(r.Condition), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (started_at, kind, query, provider, success, error_message, latency_ms, city, condition)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.StartedAt.UTC(), r.Kind, r.Query, r.Provider, r.Success, errMsg, r.Latency.Milliseconds(), city, condition)
	return err
}

// RecentResolutions returns up to limit attempts, newest first.
func (s *Store) RecentResolutions(ctx context.Context, limit int) ([]models.Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, kind, query, provider, success, error_message, latency_ms, city, condition
		FROM resolutions
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Resolution
	for rows.Next() {
		var r models.Resolution
		var errMsg, city, condition sql.NullString
		var latencyMs sql.NullInt64
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Kind, &r.Query, &r.Provider, &r.Success, &errMsg, &latencyMs, &city, &condition); err != nil {
			return nil, err
		}
		r.ErrorMessage = errMsg.String
		r.City = city.String
		r.Condition = forecast.Condition(condition.String)
		r.Latency = time.Duration(latencyMs.Int64) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResolutionStats summarises the journal since a point in time.
type ResolutionStats struct {
	Total        int     `json:"total"`
	Succeeded    int     `json:"succeeded"`
	Failed       int     `json:"failed"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

func (s *Store) ResolutionStatsSince(ctx context.Context, since time.Time) (ResolutionStats, error) {
	var st ResolutionStats
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
		       AVG(latency_ms)
		FROM resolutions
		WHERE started_at >= ?
	`, since.UTC()).Scan(&st.Total, &st.Succeeded, &avg)
	if err != nil {
		return st, err
	}
	st.Failed = st.Total - st.Succeeded
	st.AvgLatencyMs = avg.Float64
	return st, nil
}
