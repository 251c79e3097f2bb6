package forecast

import (
	"fmt"
	"strings"
	"time"
)

// Condition is the closed set of weather states a snapshot can report.
// Adding a member means updating every switch in this package.
type Condition string

const (
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
	ConditionRain         Condition = "Rain"
	ConditionSnow         Condition = "Snow"
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionMist         Condition = "Mist"
)

// AllConditions lists every condition in declaration order.
var AllConditions = []Condition{
	ConditionClear,
	ConditionClouds,
	ConditionRain,
	ConditionSnow,
	ConditionThunderstorm,
	ConditionDrizzle,
	ConditionMist,
}

// Valid reports whether c is a member of the closed set.
func (c Condition) Valid() bool {
	switch c {
	case ConditionClear, ConditionClouds, ConditionRain, ConditionSnow,
		ConditionThunderstorm, ConditionDrizzle, ConditionMist:
		return true
	}
	return false
}

// ParseCondition matches s case-insensitively against the condition set.
func ParseCondition(s string) (Condition, error) {
	for _, c := range AllConditions {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown weather condition %q", s)
}

// FromOpenWeatherID maps an OpenWeatherMap condition code onto the set.
// Codes: 2xx thunderstorm, 3xx drizzle, 5xx rain, 6xx snow, 7xx atmosphere,
// 800 clear, 80x clouds.
func FromOpenWeatherID(id int) (Condition, bool) {
	switch {
	case id >= 200 && id < 300:
		return ConditionThunderstorm, true
	case id >= 300 && id < 400:
		return ConditionDrizzle, true
	case id >= 500 && id < 600:
		return ConditionRain, true
	case id >= 600 && id < 700:
		return ConditionSnow, true
	case id >= 700 && id < 800:
		return ConditionMist, true
	case id == 800:
		return ConditionClear, true
	case id > 800 && id < 900:
		return ConditionClouds, true
	}
	return "", false
}

// TimeOfDay represents the lighting period.
type TimeOfDay string

const (
	TimeDay   TimeOfDay = "day"
	TimeDusk  TimeOfDay = "dusk"
	TimeNight TimeOfDay = "night"
	TimeDawn  TimeOfDay = "dawn"
)

// GetTimeOfDay returns the time-of-day category for t in its own location.
func GetTimeOfDay(t time.Time) TimeOfDay {
	hour := t.Hour()
	switch {
	case hour >= 5 && hour < 7:
		return TimeDawn
	case hour >= 7 && hour < 17:
		return TimeDay
	case hour >= 17 && hour < 20:
		return TimeDusk
	default:
		return TimeNight
	}
}
