package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/lox/skycast/internal/config"
	"github.com/lox/skycast/internal/dashboard"
	"github.com/lox/skycast/internal/history"
	"github.com/lox/skycast/internal/httputil"
	"github.com/lox/skycast/internal/provider"
	"github.com/lox/skycast/internal/store"
)

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	store    *store.Store
	slot     history.Slot
	provider provider.DataProvider
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		loc:     loc,
		store:   st,
		slot:    st,
		closers: []func() error{st.Close},
	}

	if cfg.RedisURL != "" {
		r, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.slot = r
		a.closers = append(a.closers, r.Close)
		log.Println("history: using redis")
	}

	var p provider.DataProvider
	if cfg.UseMock() {
		p = provider.NewMock(cfg.MockDelay, loc)
		log.Printf("provider: mock (delay %s)", cfg.MockDelay)
	} else {
		p = provider.NewOpenWeather(cfg.OpenWeatherKey, httputil.NewClient())
		log.Println("provider: openweather")
	}
	a.provider = provider.NewRateLimited(provider.NewInstrumented(p), cfg.RateLimit, cfg.RateBurst)

	return a, nil
}

func (a *app) dashboard() *dashboard.Dashboard {
	return dashboard.New(a.provider, history.NewStore(a.slot),
		dashboard.WithJournal(a.store),
		dashboard.WithDefaultCity(a.cfg.DefaultCity),
	)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
}
