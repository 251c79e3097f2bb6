package forecast

// Palette defines the color scheme for a weather condition + time of day.
type Palette struct {
	// Background is the main page background color
	Background string
	// GlowFrom and GlowVia are the overlay gradient stops
	GlowFrom string
	GlowVia  string
	// Card is the background for cards/panels
	Card string
	// CardBorder is an optional border/highlight for cards
	CardBorder string
	// Text is the primary text color
	Text string
	// TextMuted is the secondary/muted text color
	TextMuted string
	// Accent is the primary accent color (links, highlights)
	Accent string
}

// DefaultPalette is the theme shown before any snapshot has loaded.
var DefaultPalette = Palette{
	Background: "#020408",
	GlowFrom:   "rgba(2, 6, 23, 0.2)",
	GlowVia:    "rgba(0, 0, 0, 0.1)",
	Card:       "rgba(255, 255, 255, 0.03)",
	CardBorder: "rgba(255, 255, 255, 0.10)",
	Text:       "#f1f5f9",
	TextMuted:  "#64748b",
	Accent:     "#3b82f6",
}

// GetPalette returns the theme for a condition. Dawn, dusk and night darken
// the background; glow and accent stay with the condition.
func GetPalette(condition Condition, tod TimeOfDay) Palette {
	p := DefaultPalette
	switch condition {
	case ConditionClear:
		p.GlowFrom, p.GlowVia, p.Accent = "rgba(217, 119, 6, 0.20)", "rgba(124, 45, 18, 0.10)", "#fbbf24"
	case ConditionClouds:
		p.GlowFrom, p.GlowVia, p.Accent = "rgba(51, 65, 85, 0.20)", "rgba(15, 23, 42, 0.10)", "#94a3b8"
	case ConditionRain:
		p.GlowFrom, p.GlowVia, p.Accent = "rgba(30, 64, 175, 0.20)", "rgba(23, 37, 84, 0.10)", "#3b82f6"
	case ConditionSnow:
		p.GlowFrom, p.GlowVia, p.Accent = "rgba(103, 232, 249, 0.10)", "rgba(30, 58, 138, 0.05)", "#a5f3fc"
	case ConditionThunderstorm:
		p.GlowFrom, p.GlowVia, p.Accent = "rgba(49, 46, 129, 0.30)", "rgba(0, 0, 0, 1)", "#a855f7"
	case ConditionDrizzle:
		p.GlowFrom, p.GlowVia, p.Accent = "rgba(14, 116, 144, 0.15)", "rgba(15, 23, 42, 0.10)", "#22d3ee"
	case ConditionMist:
		p.GlowFrom, p.GlowVia, p.Accent = "rgba(107, 114, 128, 0.15)", "rgba(17, 24, 39, 0.10)", "#64748b"
	default:
		return DefaultPalette
	}
	if tod != TimeDay {
		p.Background = "#010204"
	}
	return p
}

// Icon returns the icon name drawn for a condition.
func Icon(condition Condition) string {
	switch condition {
	case ConditionClear:
		return "sun"
	case ConditionClouds:
		return "cloud"
	case ConditionRain:
		return "cloud-rain"
	case ConditionSnow:
		return "snowflake"
	case ConditionThunderstorm:
		return "cloud-lightning"
	case ConditionDrizzle:
		return "cloud-drizzle"
	case ConditionMist:
		return "wind"
	}
	return "cloud"
}

// Glyph returns a text fallback for Icon, used where no icon font loads.
func Glyph(condition Condition) string {
	switch condition {
	case ConditionClear:
		return "☀"
	case ConditionClouds:
		return "☁"
	case ConditionRain:
		return "🌧"
	case ConditionSnow:
		return "❄"
	case ConditionThunderstorm:
		return "⛈"
	case ConditionDrizzle:
		return "🌦"
	case ConditionMist:
		return "🌫"
	}
	return "☁"
}

// Effect names the ambient background effect the page plays. Rain and
// thunderstorm share a rain sheet; clouds and mist share drifting vapour;
// drizzle plays nothing.
func Effect(condition Condition) string {
	switch condition {
	case ConditionRain, ConditionThunderstorm:
		return "rain"
	case ConditionClear:
		return "flares"
	case ConditionSnow:
		return "flakes"
	case ConditionClouds, ConditionMist:
		return "vapour"
	case ConditionDrizzle:
		return ""
	}
	return ""
}
