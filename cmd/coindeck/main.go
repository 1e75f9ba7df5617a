package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"coindeck/internal/api"
	"coindeck/internal/carousel"
	"coindeck/internal/config"
	"coindeck/internal/feed"
	"coindeck/internal/insight"
	"coindeck/internal/router"
	"coindeck/internal/session"
	"coindeck/internal/ui"
	"coindeck/internal/util"
)

func main() {
	// .env is optional; real environment wins over it.
	_ = godotenv.Load()

	cfgPath := "config.yaml"
	if p := os.Getenv("COINDECK_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so the log goes to a file.
	logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewFileLogger(logFile, cfg.Logging.Level)
	logger.Info("starting", "api", cfg.API.BaseURL)

	storage, err := session.NewSQLiteStorage(cfg.Storage.SQLitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening session storage: %v\n", err)
		os.Exit(1)
	}
	defer storage.Close()

	client := api.NewClient(cfg.API.BaseURL, logger)
	store := session.New(storage, logger)
	prefs := feed.NewPreferences(client, logger)
	defer prefs.Close()
	news := feed.NewNews(client, logger, cfg.Feeds.NewsStale(), cfg.Feeds.NewsRefetch())
	defer news.Close()
	prices := feed.NewPrices(client, logger, cfg.Feeds.PricesStale(), cfg.Feeds.PricesRefetch())
	defer prices.Close()
	asker := insight.New(client, cfg.Insight.Model, logger)
	r := router.New(store, prefs, logger)

	// Pick up a remembered credential before the program exists. Nothing is
	// bound yet, so no callback can reach Program.Send before its event loop
	// runs; the root model seeds from the router's resulting view and Init
	// kicks off the dashboard.
	if store.Restore(time.Now()) {
		logger.Info("restored persisted credential")
		r.Start()
	}

	var p *tea.Program
	wheel := carousel.New(cfg.Carousel.Period(), func(idx int) {
		if p != nil {
			p.Send(ui.CarouselMsg(idx))
		}
	})
	defer wheel.Stop()

	deps := ui.Deps{
		Cfg:      cfg,
		Logger:   logger,
		Client:   client,
		Session:  store,
		Router:   r,
		Prefs:    prefs,
		News:     news,
		Prices:   prices,
		Carousel: wheel,
		Insight:  asker,
	}

	p = tea.NewProgram(ui.New(deps), tea.WithAltScreen())
	ui.Bind(deps, p.Send)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
