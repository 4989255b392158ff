package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// 1. Načtení Konfigurace
	cfg := LoadConfig()

	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 2. MQTT klient musí vzniknout dřív než logger, který do MQTT píše.
	commands := NewCommandChannel(cfg, logger)
	if cfg.LogToMQTT {
		multi := io.MultiWriter(os.Stdout, NewMqttLogWriter(commands.Client(), cfg.MQTTClientID))
		logger = slog.New(slog.NewJSONHandler(multi, handlerOpts))
		slog.SetDefault(logger)
		commands.SetLogger(logger)
	}

	logger.Info("Startuji Device Agent", "device_id", cfg.DeviceID, "profile", cfg.Profile, "server", cfg.ServerURL)

	// 3. Profil (piny, práh, ID). Bez platného profilu nemá smysl běžet.
	profile, err := ResolveProfile(cfg)
	if err != nil {
		logger.Error("Kritická chyba: neplatný profil", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown na SIGINT (Ctrl+C) i SIGTERM (docker stop).
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Piny
	pins, closePins, err := openPins(cfg)
	if err != nil {
		logger.Error("Kritická chyba: nelze otevřít piny", "backend", cfg.PinBackend, "error", err)
		os.Exit(1)
	}
	defer closePins()

	// 5. Hodiny, REST klient, lokální úložiště
	clock := NewNTPClock(cfg.NTPServer, cfg.NTPInterval, logger)
	api := NewAPIClient(cfg.ServerURL, cfg.HTTPTimeout)
	recorder, closeRecorders := openRecorders(ctx, cfg, logger)
	defer closeRecorders()

	// 6. Agent (Wiring)
	agent := NewAgent(cfg, profile, api, pins, clock, logger)
	agent.SetCommandSource(commands)
	if recorder != nil {
		agent.SetRecorder(recorder)
	}
	defer commands.Close()

	// 7. Status API pro Docker/K8s a pro ladění
	if cfg.HTTPPort != "" {
		srv := &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           NewStatusHandler(agent, logger).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go startStatusServer(srv, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// 8. Ohlášení a hlavní smyčka. Blokuje až do signálu.
	agent.Announce(ctx)
	logger.Info("Vstupuji do hlavní smyčky", "interval", cfg.PollInterval)
	if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Smyčka skončila s chybou", "error", err)
	}

	logger.Info("Ukončuji agenta...")
	// Zde proběhnou defery (status server, MQTT disconnect, DB, piny)
}

func openPins(cfg Config) (PinDriver, func(), error) {
	switch cfg.PinBackend {
	case "modbus":
		p, err := NewModbusPins(cfg.ModbusAddr, cfg.ModbusSlaveID, cfg.HTTPTimeout)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	case "memory", "":
		return NewMemoryPins(), func() {}, nil
	default:
		return nil, nil, errors.New("neznámý PIN_BACKEND " + cfg.PinBackend + " (memory | modbus)")
	}
}

// openRecorders otevře volitelná úložiště. Nedostupné úložiště se jen vypne.
func openRecorders(ctx context.Context, cfg Config, logger *slog.Logger) (Recorder, func()) {
	var recorders MultiRecorder
	var closers []func()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.PostgresURL != "" {
		pg, err := NewPostgresRecorder(connectCtx, cfg.PostgresURL)
		if err != nil {
			logger.Warn("Historie v Postgres vypnuta", "error", err)
		} else {
			recorders = append(recorders, pg)
			closers = append(closers, pg.Close)
			logger.Info("Historie v Postgres zapnuta")
		}
	}
	if cfg.ValkeyAddr != "" {
		vk, err := NewValkeyRecorder(connectCtx, cfg.ValkeyAddr)
		if err != nil {
			logger.Warn("Živý stav ve Valkey vypnut", "error", err)
		} else {
			recorders = append(recorders, vk)
			closers = append(closers, func() { vk.Close() })
			logger.Info("Živý stav ve Valkey zapnut", "addr", cfg.ValkeyAddr)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(recorders) == 0 {
		return nil, closeAll
	}
	return recorders, closeAll
}
