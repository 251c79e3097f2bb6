package api

import (
	"time"

	"github.com/lox/skycast/internal/dashboard"
	"github.com/lox/skycast/internal/forecast"
	"github.com/lox/skycast/internal/models"
	"github.com/lox/skycast/internal/store"
)

// IndexData is everything the dashboard page renders.
type IndexData struct {
	dashboard.State
	Palette       forecast.Palette
	Condition     forecast.Condition // empty until a snapshot has loaded
	Effect        string
	Chart         *ChartData
	ThemeOverride string
	Now           time.Time
}

// ChartData is the 7-day max/min series for a line chart.
type ChartData struct {
	Labels []string  `json:"labels"`
	Max    []float64 `json:"max"`
	Min    []float64 `json:"min"`
}

func chartFor(snap *models.Snapshot) *ChartData {
	if snap == nil {
		return nil
	}
	c := &ChartData{
		Labels: make([]string, 0, len(snap.Forecast)),
		Max:    make([]float64, 0, len(snap.Forecast)),
		Min:    make([]float64, 0, len(snap.Forecast)),
	}
	for _, d := range snap.Forecast {
		c.Labels = append(c.Labels, d.Date)
		c.Max = append(c.Max, d.TempMax)
		c.Min = append(c.Min, d.TempMin)
	}
	return c
}

// StateResponse is the JSON form of the dashboard state.
type StateResponse struct {
	dashboard.State
	Chart  *ChartData `json:"chart,omitempty"`
	Reason string     `json:"reason,omitempty"` // why the request was rejected
}

// ResolutionView is one journal row.
type ResolutionView struct {
	StartedAt time.Time          `json:"started_at"`
	Kind      string             `json:"kind"`
	Query     string             `json:"query"`
	Provider  string             `json:"provider"`
	Success   bool               `json:"success"`
	Error     string             `json:"error,omitempty"`
	LatencyMs int64              `json:"latency_ms"`
	City      string             `json:"city,omitempty"`
	Condition forecast.Condition `json:"condition,omitempty"`
}

func newResolutionView(r models.Resolution) ResolutionView {
	return ResolutionView{
		StartedAt: r.StartedAt,
		Kind:      r.Kind,
		Query:     r.Query,
		Provider:  r.Provider,
		Success:   r.Success,
		Error:     r.ErrorMessage,
		LatencyMs: r.Latency.Milliseconds(),
		City:      r.City,
		Condition: r.Condition,
	}
}

// ResolutionsResponse lists recent attempts with a 24 hour summary.
type ResolutionsResponse struct {
	Stats  store.ResolutionStats `json:"stats"`
	Recent []ResolutionView      `json:"recent"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status      string    `json:"status"`
	Phase       string    `json:"phase"`
	City        string    `json:"city,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	AgeMinutes  int       `json:"age_minutes"`
	Schema      int       `json:"schema_version"`
	Errors      []string  `json:"errors,omitempty"`
}
