// Package config holds the settings shared by every skycast command. Values
// come from flags, then the environment, then a .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	Addr            string        `help:"HTTP listen address." default:":8080" env:"SKYCAST_ADDR" validate:"required"`
	DB              string        `help:"Path to the SQLite database." default:"data/skycast.db" env:"SKYCAST_DB" validate:"required"`
	RedisURL        string        `help:"Keep history in Redis instead of SQLite." env:"REDIS_URL" validate:"omitempty,url"`
	OpenWeatherKey  string        `help:"OpenWeatherMap API key. Mock data is served when empty." env:"OPENWEATHER_API_KEY"`
	DefaultCity     string        `help:"City resolved at startup." default:"Beijing" env:"SKYCAST_DEFAULT_CITY" validate:"required"`
	MockDelay       time.Duration `help:"Simulated latency of the mock provider." default:"800ms" env:"SKYCAST_MOCK_DELAY" validate:"min=0s"`
	Timezone        string        `help:"IANA zone for mock timestamps and day labels." default:"Local" env:"SKYCAST_TIMEZONE"`
	RefreshInterval time.Duration `help:"Re-resolve the shown location this often (0 disables)." default:"0s" env:"SKYCAST_REFRESH_INTERVAL" validate:"omitempty,min=1m"`
	RateLimit       float64       `help:"Upstream resolutions per second." default:"1" env:"SKYCAST_RATE_LIMIT" validate:"gt=0"`
	RateBurst       int           `help:"Upstream burst size." default:"5" env:"SKYCAST_RATE_BURST" validate:"min=1"`
}

// LoadDotenv reads .env files into the environment before flags are parsed.
// A missing file is not an error.
func LoadDotenv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		log.Printf("config: no .env loaded: %v", err)
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result = multierror.Append(result, fieldError(fe))
			}
		} else {
			result = multierror.Append(result, err)
		}
	}
	if strings.TrimSpace(c.DefaultCity) == "" && c.DefaultCity != "" {
		result = multierror.Append(result, errors.New("default-city: blank"))
	}
	if _, err := c.Location(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UseMock reports whether no upstream key is configured.
func (c *Config) UseMock() bool {
	return c.OpenWeatherKey == ""
}

func fieldError(fe validator.FieldError) error {
	name := flagName(fe.Field())
	if fe.Param() == "" {
		return fmt.Errorf("%s: failed %s", name, fe.Tag())
	}
	return fmt.Errorf("%s: failed %s=%s (got %v)", name, fe.Tag(), fe.Param(), fe.Value())
}

// flagName turns RefreshInterval into refresh-interval.
func flagName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(field[i-1] >= 'A' && field[i-1] <= 'Z') {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
