package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lox/skycast/internal/forecast"
	"github.com/lox/skycast/internal/htmlutil"
	"github.com/lox/skycast/internal/models"
)

const openWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeather resolves locations against OpenWeatherMap: the geocoding API
// turns names into coordinates (and back), One Call 3.0 supplies current
// conditions and the daily forecast.
type OpenWeather struct {
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

type OpenWeatherOption func(*OpenWeather)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) OpenWeatherOption {
	return func(o *OpenWeather) {
		o.baseURL = u
	}
}

func NewOpenWeather(apiKey string, client *http.Client, opts ...OpenWeatherOption) *OpenWeather {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var a abandoned
			return err == nil || errors.As(err, &a)
		},
	})

	o := &OpenWeather{
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		client:  client,
		circuit: cb,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenWeather) Name() string {
	return "openweather"
}

type geoPlace struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

type owmWeather struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

type oneCallResponse struct {
	Timezone       string `json:"timezone"`
	TimezoneOffset int    `json:"timezone_offset"`
	Current        struct {
		Dt        int64        `json:"dt"`
		Temp      float64      `json:"temp"`
		FeelsLike float64      `json:"feels_like"`
		Humidity  int          `json:"humidity"`
		WindSpeed float64      `json:"wind_speed"` // m/s
		Weather   []owmWeather `json:"weather"`
	} `json:"current"`
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Weather []owmWeather `json:"weather"`
	} `json:"daily"`
}

func (o *OpenWeather) ResolveByCity(ctx context.Context, city string) (*models.Snapshot, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("limit", "1")

	var places []geoPlace
	if err := o.getJSON(ctx, "/geo/1.0/direct", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, unreachable("no match for city %q", city)
	}

	p := places[0]
	return o.oneCall(ctx, p.Lat, p.Lon, p.Name)
}

func (o *OpenWeather) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*models.Snapshot, error) {
	q := url.Values{}
	q.Set("lat", formatFloat(lat))
	q.Set("lon", formatFloat(lon))
	q.Set("limit", "1")

	var places []geoPlace
	if err := o.getJSON(ctx, "/geo/1.0/reverse", q, &places); err != nil {
		return nil, err
	}

	// Open water has no reverse-geocode match.
	label := FormatCoordinates(lat, lon)
	if len(places) > 0 && places[0].Name != "" {
		label = places[0].Name
	}
	return o.oneCall(ctx, lat, lon, label)
}

func (o *OpenWeather) oneCall(ctx context.Context, lat, lon float64, city string) (*models.Snapshot, error) {
	q := url.Values{}
	q.Set("lat", formatFloat(lat))
	q.Set("lon", formatFloat(lon))
	q.Set("units", "metric")
	q.Set("exclude", "minutely,hourly,alerts")

	var data oneCallResponse
	if err := o.getJSON(ctx, "/data/3.0/onecall", q, &data); err != nil {
		return nil, err
	}
	return mapOneCall(&data, city)
}

func mapOneCall(data *oneCallResponse, city string) (*models.Snapshot, error) {
	if len(data.Daily) < models.ForecastDays {
		return nil, unreachable("onecall returned %d daily entries, want %d", len(data.Daily), models.ForecastDays)
	}
	if len(data.Current.Weather) == 0 {
		return nil, unreachable("onecall current has no weather")
	}

	tz := time.FixedZone(data.Timezone, data.TimezoneOffset)

	w := data.Current.Weather[0]
	condition, ok := forecast.FromOpenWeatherID(w.ID)
	if !ok {
		return nil, unreachable("unmapped condition id %d", w.ID)
	}

	snap := &models.Snapshot{
		Current: models.CurrentConditions{
			City:        city,
			Temp:        data.Current.Temp,
			FeelsLike:   data.Current.FeelsLike,
			TempMin:     data.Daily[0].Temp.Min,
			TempMax:     data.Daily[0].Temp.Max,
			Humidity:    data.Current.Humidity,
			WindSpeed:   data.Current.WindSpeed * 3.6,
			Condition:   condition,
			Description: w.Description,
			Timestamp:   time.Unix(data.Current.Dt, 0).In(tz),
		},
		Forecast: make([]models.ForecastDay, 0, models.ForecastDays),
	}

	for i, d := range data.Daily[:models.ForecastDays] {
		if len(d.Weather) == 0 {
			return nil, unreachable("daily[%d] has no weather", i)
		}
		dc, ok := forecast.FromOpenWeatherID(d.Weather[0].ID)
		if !ok {
			return nil, unreachable("daily[%d] unmapped condition id %d", i, d.Weather[0].ID)
		}
		snap.Forecast = append(snap.Forecast, models.ForecastDay{
			Date:      time.Unix(d.Dt, 0).In(tz).Format("Mon"),
			TempMin:   d.Temp.Min,
			TempMax:   d.Temp.Max,
			Condition: dc,
		})
	}

	return finish(snap)
}

// abandoned wraps an error caused by the caller giving up. The circuit does
// not count it against the upstream.
type abandoned struct{ err error }

func (a abandoned) Error() string { return a.err.Error() }
func (a abandoned) Unwrap() error { return a.err }

func (o *OpenWeather) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, htmlutil.Summary(string(b), 200))
	}
	return io.ReadAll(resp.Body)
}

// getJSON performs one GET through the circuit breaker and decodes the body.
// Every failure is reported as ErrUpstreamUnreachable; there is no retry.
func (o *OpenWeather) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("appid", o.apiKey)
	u := o.baseURL + path + "?" + q.Encode()

	result, err := o.circuit.Execute(func() (interface{}, error) {
		body, err := o.fetch(ctx, u)
		if err != nil && ctx.Err() != nil {
			return nil, abandoned{err}
		}
		return body, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return unreachable("circuit open: %v", err)
		}
		return unreachable("GET %s: %v", path, err)
	}

	body, ok := result.([]byte)
	if !ok {
		return unreachable("GET %s: unexpected result type", path)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return unreachable("decode %s: %v", path, err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
