package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/skycast/internal/dashboard"
	"github.com/lox/skycast/internal/forecast"
	"github.com/lox/skycast/internal/provider"
	"github.com/lox/skycast/internal/store"
)

var validate = validator.New()

// resolveTimeout bounds a resolution started by a request.
const resolveTimeout = 30 * time.Second

// resolveContext detaches a resolution from the client connection. The
// dashboard is shared, so a viewer who leaves mid-load does not abort it.
func resolveContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), resolveTimeout)
}

type Server struct {
	dash  *dashboard.Dashboard
	store *store.Store
	addr  string
	loc   *time.Location
	tmpl  *template.Template
}

func NewServer(dash *dashboard.Dashboard, store *store.Store, addr string, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	return &Server{
		dash:  dash,
		store: store,
		addr:  addr,
		loc:   loc,
		tmpl:  newTemplates(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /locate", s.handleLocate)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleAPIState)
	mux.HandleFunc("POST /api/search", s.handleAPISearch)
	mux.HandleFunc("POST /api/locate", s.handleAPILocate)
	mux.HandleFunc("GET /api/history", s.handleAPIHistory)
	mux.HandleFunc("GET /api/resolutions", s.handleAPIResolutions)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// locateRequest is the device position posted by the page or the API. Error
// carries the browser's geolocation failure instead of a position.
type locateRequest struct {
	Lat   *float64 `json:"lat" validate:"required,latitude"`
	Lon   *float64 `json:"lon" validate:"required,longitude"`
	Error string   `json:"error"`
}

func (s *Server) locate(ctx context.Context, req locateRequest) error {
	if req.Error != "" {
		s.dash.ReportLocationUnavailable(locationMessage(req.Error))
		return fmt.Errorf("%w: %s", dashboard.ErrLocationUnavailable, req.Error)
	}
	if err := validate.Struct(req); err != nil {
		s.dash.ReportLocationUnavailable(dashboard.MsgLocationUnavailable)
		return fmt.Errorf("%w: %v", dashboard.ErrLocationUnavailable, err)
	}
	return s.dash.RequestByCoordinates(ctx, *req.Lat, *req.Lon)
}

// locationMessage maps the page's geolocation error codes to a banner.
func locationMessage(code string) string {
	switch code {
	case "denied":
		return dashboard.MsgLocationDenied
	case "unsupported":
		return dashboard.MsgGeolocationInactive
	default:
		return dashboard.MsgLocationUnavailable
	}
}

// statusFor maps request outcomes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dashboard.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrLocationUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrUpstreamUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// logOutcome logs failures worth an operator's attention. Rejected input and
// dropped requests are routine.
func logOutcome(what string, err error) {
	if err == nil || errors.Is(err, dashboard.ErrInvalidInput) || errors.Is(err, dashboard.ErrBusy) {
		return
	}
	log.Printf("api: %s: %v", what, err)
}

// parseThemeOverride reads ?theme=rain_night style overrides used to preview
// palettes. The time-of-day suffix is optional.
func parseThemeOverride(override string) (condition forecast.Condition, tod forecast.TimeOfDay, ok bool) {
	if override == "" {
		return "", "", false
	}

	name := override
	for _, t := range []forecast.TimeOfDay{forecast.TimeDawn, forecast.TimeDay, forecast.TimeDusk, forecast.TimeNight} {
		if suffix := "_" + string(t); strings.HasSuffix(override, suffix) {
			name = strings.TrimSuffix(override, suffix)
			tod = t
			break
		}
	}

	c, err := forecast.ParseCondition(name)
	if err != nil {
		return "", "", false
	}
	return c, tod, true
}
