package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"reachwatch/internal/api"
	"reachwatch/internal/config"
	"reachwatch/internal/handlers"
	"reachwatch/internal/history"
	"reachwatch/internal/monitor"
	"reachwatch/internal/notify"
	"reachwatch/internal/snapshot"
)

const configsPath = "./configs/config.yaml"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	godotenv.Load(".env")

	cfg, err := config.Load(configsPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database is optional: without DATABASE_URL the monitor runs with no
	// transition history.
	var dbpool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		poolCfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			logger.Error("failed to parse db config", "error", err)
			os.Exit(1)
		}
		// PgBouncer (transaction pooling) rejects prepared statements.
		poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			logger.Error("failed to create db pool", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()

		if err := dbpool.Ping(ctx); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		if err := history.EnsureSchema(ctx, dbpool); err != nil {
			logger.Error("failed to ensure history schema", "error", err)
			os.Exit(1)
		}
	}

	client := monitor.NewHTTPClient(monitor.HTTPClientConfig{
		Timeout:         monitor.HTTPTimeout,
		UserAgent:       cfg.Monitor.UserAgent,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	})

	var icmp monitor.Strategy = monitor.NewPingStrategy(cfg.Monitor.PingPath)
	if cfg.Monitor.PrivilegedICMP {
		icmp = monitor.NewPrivilegedPingStrategy()
	}

	store := monitor.NewStore(cfg.Monitor.UpThreshold, cfg.Monitor.DownThreshold)
	engine := monitor.NewEngine(ctx, store, map[monitor.CheckType]monitor.Strategy{
		monitor.CheckICMP: icmp,
		monitor.CheckHTTP: monitor.NewHTTPStrategy(client),
	}, logger)
	sched := monitor.NewScheduler(engine, cfg.Monitor.IntervalDur, logger)

	seedHosts(engine, cfg.Hosts)

	pub := monitor.StartPublisher(ctx, engine, sched)
	history.StartRecorder(ctx, engine, dbpool, logger)
	hub := api.StartEventHub(ctx, engine, logger)

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			logger.Error("invalid TELEGRAM_CHAT_ID", "error", err)
			os.Exit(1)
		}
		tbot, err := bot.New(token)
		if err != nil {
			logger.Error("failed to create telegram bot", "error", err)
			os.Exit(1)
		}
		notify.StartTelegram(ctx, engine, tbot, chatID, logger)
	}

	sched.Start()

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot.Get()); err != nil {
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
		}
	})

	r.Post("/api/hosts", func(w http.ResponseWriter, r *http.Request) {
		host, ok := hostParam(w, r)
		if !ok {
			return
		}
		engine.Upsert(host)
		pub.Refresh()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Delete("/api/hosts", func(w http.ResponseWriter, r *http.Request) {
		host, ok := hostParam(w, r)
		if !ok {
			return
		}
		engine.Remove(host)
		pub.Refresh()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/api/hosts/toggle", func(w http.ResponseWriter, r *http.Request) {
		host, ok := hostParam(w, r)
		if !ok {
			return
		}
		on := engine.ToggleMonitored(host)
		pub.Refresh()
		writeJSON(w, map[string]any{"host": host, "monitored": on})
	})

	r.Put("/api/hosts/check-type", func(w http.ResponseWriter, r *http.Request) {
		host, ok := hostParam(w, r)
		if !ok {
			return
		}
		ct := monitor.CheckType(strings.ToLower(r.URL.Query().Get("type")))
		if ct != monitor.CheckICMP && ct != monitor.CheckHTTP {
			http.Error(w, "invalid type (use icmp or http)", http.StatusBadRequest)
			return
		}
		engine.SetCheckType(host, ct)
		pub.Refresh()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/api/start", func(w http.ResponseWriter, r *http.Request) {
		sched.Start()
		pub.Refresh()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/api/stop", func(w http.ResponseWriter, r *http.Request) {
		sched.Stop()
		pub.Refresh()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/api/running", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"running": sched.IsRunning(), "interval": sched.Interval().String()})
	})

	r.Put("/api/interval", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Interval string `json:"interval"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		d, err := time.ParseDuration(body.Interval)
		if err != nil || !monitor.AllowedInterval(d) {
			http.Error(w, "interval must be one of 500ms/1s/2s/5s", http.StatusBadRequest)
			return
		}
		sched.SetInterval(d)
		pub.Refresh()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Put("/api/thresholds", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Up   int `json:"up"`
			Down int `json:"down"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if body.Up < 1 || body.Down < 1 {
			http.Error(w, "thresholds must be >= 1", http.StatusBadRequest)
			return
		}
		engine.SetThresholds(body.Up, body.Down)
		pub.Refresh()
		w.WriteHeader(http.StatusNoContent)
	})

	h := handlers.New(dbpool, logger)
	r.Get("/api/uptime", h.GetUptime)
	r.Get("/api/transitions", h.GetTransitions)

	r.Get("/api/events", hub.Handle)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func seedHosts(engine *monitor.Engine, hosts []config.Host) {
	monitored := make([]string, 0, len(hosts))
	for _, h := range hosts {
		engine.Upsert(h.Address)
		engine.SetCheckType(h.Address, monitor.CheckType(h.Check))
		if h.Monitored != nil && *h.Monitored {
			monitored = append(monitored, h.Address)
		}
	}
	engine.SetMonitored(monitored)
}

func hostParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		http.Error(w, "missing host", http.StatusBadRequest)
		return "", false
	}
	return host, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
