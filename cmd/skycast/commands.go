package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lox/skycast/internal/api"
	"github.com/lox/skycast/internal/config"
	"github.com/lox/skycast/internal/dashboard"
	"github.com/lox/skycast/internal/history"
	"github.com/lox/skycast/internal/refresh"
)

type ServeCmd struct{}

func (c *ServeCmd) Run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	dash := a.dashboard()
	go func() {
		if err := dash.Start(ctx); err != nil {
			log.Printf("dashboard: initial resolve: %v", err)
		}
	}()

	if cfg.RefreshInterval > 0 {
		sched := refresh.New(dash, cfg.RefreshInterval, func(err error) bool {
			return errors.Is(err, dashboard.ErrBusy)
		})
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	} else {
		log.Println("refresh disabled")
	}

	server := api.NewServer(dash, a.store, cfg.Addr, a.loc)
	log.Printf("starting server on %s", cfg.Addr)
	return server.Run(ctx)
}

type QueryCmd struct {
	City string `arg:"" help:"City to resolve."`
	JSON bool   `help:"Print the snapshot as JSON."`
}

func (c *QueryCmd) Run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	dash := a.dashboard()
	dash.LoadHistory(ctx)
	if err := dash.RequestByCity(ctx, c.City); err != nil {
		return err
	}
	snap := dash.State().Snapshot

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	cur := snap.Current
	fmt.Printf("%s  %.0f°C (feels %.0f°C)  %s\n", cur.City, cur.Temp, cur.FeelsLike, cur.Description)
	fmt.Printf("  humidity %d%%  wind %.0f km/h  range %.0f..%.0f°C\n", cur.Humidity, cur.WindSpeed, cur.TempMin, cur.TempMax)
	for _, d := range snap.Forecast {
		fmt.Printf("  %-3s %3.0f..%-3.0f %s\n", d.Date, d.TempMin, d.TempMax, d.Condition)
	}
	return nil
}

type HistoryCmd struct{}

func (c *HistoryCmd) Run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	entries := history.NewStore(a.slot).Load(ctx)
	if len(entries) == 0 {
		fmt.Println("no recent cities")
		return nil
	}
	width := 0
	for _, e := range entries {
		width = max(width, len(e.City))
	}
	for _, e := range entries {
		fmt.Printf("%s%s  %s\n", e.City, strings.Repeat(" ", width-len(e.City)), humanize.Time(e.Time()))
	}
	return nil
}
