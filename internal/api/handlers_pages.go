package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lox/skycast/internal/forecast"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.dash.State()
	data := IndexData{
		State:   st,
		Palette: forecast.DefaultPalette,
		Now:     time.Now().In(s.loc),
	}

	tod := forecast.GetTimeOfDay(data.Now)
	if st.Snapshot != nil {
		data.Condition = st.Snapshot.Current.Condition
		// Light the page for the local time at the shown location.
		tod = forecast.GetTimeOfDay(st.Snapshot.Current.Timestamp)
		data.Chart = chartFor(st.Snapshot)
	}

	// Check for override query param: ?theme=thunderstorm_night
	if override := r.URL.Query().Get("theme"); override != "" {
		if c, t, ok := parseThemeOverride(override); ok {
			data.Condition = c
			if t != "" {
				tod = t
			}
			data.ThemeOverride = override
		}
	}

	if data.Condition != "" {
		data.Palette = forecast.GetPalette(data.Condition, tod)
		data.Effect = forecast.Effect(data.Condition)
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("template error: %v", err)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := resolveContext(r)
	defer cancel()
	err := s.dash.RequestByCity(ctx, r.FormValue("city"))
	logOutcome("search", err)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	req := locateRequest{
		Lat:   parseCoordinate(r.FormValue("lat")),
		Lon:   parseCoordinate(r.FormValue("lon")),
		Error: r.FormValue("error"),
	}
	ctx, cancel := resolveContext(r)
	defer cancel()
	err := s.locate(ctx, req)
	logOutcome("locate", err)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func parseCoordinate(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
