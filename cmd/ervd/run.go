// cmd/ervd/run.go
package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tamzrod/erv-bridge/internal/api"
	"github.com/tamzrod/erv-bridge/internal/poller"
	"github.com/tamzrod/erv-bridge/internal/publisher"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the device and serve telemetry until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}
}

func runDaemon(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Telemetry service
	// --------------------

	svc, err := poller.Build(cfg, log)
	if err != nil {
		return err
	}

	log.Info().
		Str("device", cfg.Device.Endpoint()).
		Uint8("unit_id", cfg.Device.UnitID).
		Str("profile", svc.Registers().Profile()).
		Msg("starting ervd")

	var wg sync.WaitGroup

	// ---- inbound API ----
	var apiServer *api.Server
	if cfg.HTTP.Listen != "" {
		apiServer = api.NewServer(svc, api.Config{Listen: cfg.HTTP.Listen, WSPath: cfg.HTTP.WSPath}, log)
		if err := apiServer.Start(); err != nil {
			_ = svc.Close()
			return err
		}
	}

	// ---- MQTT sink ----
	if cfg.MQTT.Broker != "" {
		pub, err := publisher.New(publisher.Config{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			TopicPrefix:    cfg.MQTT.TopicPrefix,
			QoS:            cfg.MQTT.QoS,
			Commands:       cfg.MQTT.Commands,
			CommandTimeout: 2 * cfg.Device.Timeout(),
		}, svc, svc, log)
		if err != nil {
			_ = svc.Close()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("mqtt publisher stopped")
			}
		}()
	}

	// ---- poller (blocks until signal) ----
	if err := svc.Run(ctx); err != nil {
		return err
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("api shutdown")
		}
	}

	wg.Wait()
	return svc.Close()
}
