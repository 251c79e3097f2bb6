package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lox/skycast/internal/forecast"
)

// ForecastDays is the number of days in every snapshot, day 0 being today.
const ForecastDays = 7

type CurrentConditions struct {
	City        string             `json:"city"`
	Temp        float64            `json:"temp"`
	FeelsLike   float64            `json:"feelsLike"`
	TempMin     float64            `json:"minTemp"`
	TempMax     float64            `json:"maxTemp"`
	Humidity    int                `json:"humidity"`  // percent
	WindSpeed   float64            `json:"windSpeed"` // km/h
	Condition   forecast.Condition `json:"condition"`
	Description string             `json:"description"`
	Timestamp   time.Time          `json:"timestamp"`
}

type ForecastDay struct {
	Date      string             `json:"date"` // display label, e.g. "Mon"
	TempMin   float64            `json:"tempMin"`
	TempMax   float64            `json:"tempMax"`
	Condition forecast.Condition `json:"condition"`
}

// Snapshot is the full current-plus-forecast payload for one location at one
// point in time.
type Snapshot struct {
	Current  CurrentConditions `json:"current"`
	Forecast []ForecastDay     `json:"forecast"`
}

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Validate checks the shape and ordering invariants of a snapshot.
func (s *Snapshot) Validate() error {
	var problems []string
	c := s.Current

	if strings.TrimSpace(c.City) == "" {
		problems = append(problems, "empty city")
	}
	if !c.Condition.Valid() {
		problems = append(problems, fmt.Sprintf("current condition %q", c.Condition))
	}
	if !finite(c.Temp, c.FeelsLike, c.TempMin, c.TempMax, c.WindSpeed) {
		problems = append(problems, "non-finite current value")
	}
	if c.TempMin > c.Temp || c.Temp > c.TempMax {
		problems = append(problems, fmt.Sprintf("current temps out of order: min %.1f temp %.1f max %.1f", c.TempMin, c.Temp, c.TempMax))
	}
	if c.Humidity < 0 || c.Humidity > 100 {
		problems = append(problems, fmt.Sprintf("humidity %d", c.Humidity))
	}
	if c.WindSpeed < 0 {
		problems = append(problems, fmt.Sprintf("wind speed %.1f", c.WindSpeed))
	}

	if len(s.Forecast) != ForecastDays {
		problems = append(problems, fmt.Sprintf("%d forecast days, want %d", len(s.Forecast), ForecastDays))
	}
	for i, d := range s.Forecast {
		if !d.Condition.Valid() {
			problems = append(problems, fmt.Sprintf("day %d condition %q", i, d.Condition))
		}
		if !finite(d.TempMin, d.TempMax) {
			problems = append(problems, fmt.Sprintf("day %d non-finite temps", i))
		}
		if d.TempMin > d.TempMax {
			problems = append(problems, fmt.Sprintf("day %d min %.1f above max %.1f", i, d.TempMin, d.TempMax))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSnapshot, strings.Join(problems, "; "))
	}
	return nil
}

// Normalize widens the min/max range so it contains the observed temperature,
// swaps inverted forecast ranges and clamps humidity and wind into their domains.
func (s *Snapshot) Normalize() {
	c := &s.Current
	c.TempMin = math.Min(c.TempMin, c.Temp)
	c.TempMax = math.Max(c.TempMax, c.Temp)
	if c.Humidity < 0 {
		c.Humidity = 0
	}
	if c.Humidity > 100 {
		c.Humidity = 100
	}
	if c.WindSpeed < 0 {
		c.WindSpeed = 0
	}
	for i := range s.Forecast {
		d := &s.Forecast[i]
		if d.TempMin > d.TempMax {
			d.TempMin, d.TempMax = d.TempMax, d.TempMin
		}
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Resolution kinds.
const (
	KindCity        = "city"
	KindCoordinates = "coordinates"
)

// Resolution records one attempt to turn a location into a snapshot.
type Resolution struct {
	ID           int64
	StartedAt    time.Time
	Kind         string // KindCity or KindCoordinates
	Query        string
	Provider     string
	Success      bool
	ErrorMessage string
	Latency      time.Duration
	City         string
	Condition    forecast.Condition
}
