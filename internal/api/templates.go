package api

import (
	"embed"
	"html/template"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lox/skycast/internal/forecast"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"round": func(f float64) int {
			return int(math.Round(f))
		},
		// Palette values are compiled-in constants, never user input.
		"css": func(s string) template.CSS {
			return template.CSS(s)
		},
		"ago":   humanize.Time,
		"icon":  forecast.Icon,
		"glyph": forecast.Glyph,
		"upper": strings.ToUpper,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
