package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/mauro7x/maze-runner/internal/bus"
	"github.com/mauro7x/maze-runner/internal/bus/mqttbus"
	"github.com/mauro7x/maze-runner/internal/bus/wsbus"
	"github.com/mauro7x/maze-runner/internal/config"
	"github.com/mauro7x/maze-runner/internal/game"
	"github.com/mauro7x/maze-runner/internal/httpapi"
	"github.com/mauro7x/maze-runner/internal/topics"
)

func connect(cfg *config.Config, broker *bus.Broker, adapter *bus.Adapter) error {
	switch cfg.Broker.Kind {
	case config.BrokerMQTT:
		_, err := mqttbus.Dial(mqttbus.Config{BrokerURL: cfg.Broker.URL}, adapter)
		return err
	case config.BrokerRelay:
		_, err := wsbus.Dial(cfg.Broker.URL, adapter)
		return err
	case config.BrokerMemory:
		broker.Connect(adapter)
		return nil
	default:
		return fmt.Errorf("unknown broker kind %q", cfg.Broker.Kind)
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	room := pflag.String("room", "", "room to join")
	username := pflag.String("username", "", "desired username")
	owner := pflag.Bool("owner", false, "host the room authority in this process")
	pflag.Parse()

	if *room == "" {
		log.Fatal().Msg("--room is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	set := topics.ForRoom(*room)
	memBroker := bus.NewBroker()

	// The owner's tab runs the authority next to its own peer client, each
	// on its own bus connection.
	var auth *game.Authority
	if *owner {
		authAdapter := bus.NewAdapter()
		auth = game.NewAuthority(authAdapter, set)
		if err := connect(cfg, memBroker, authAdapter); err != nil {
			log.Fatal().Err(err).Msg("connecting authority to the bus")
		}
		if err := auth.Start(); err != nil {
			log.Fatal().Err(err).Msg("starting authority")
		}
		log.Info().Str("room", *room).Msg("hosting room authority")
	}

	peerAdapter := bus.NewAdapter()
	peer := game.NewClient(peerAdapter, game.ClientConfig{
		Topics:               set,
		DesiredUsername:      *username,
		PublishPositionEvery: cfg.Game.PublishPositionEvery,
		CheckGoalEvery:       cfg.Game.CheckGoalEvery,
		KeepAliveEvery:       cfg.Game.KeepAliveEvery,
		AspectRatio:          cfg.Game.AspectRatio,
		GoalReward:           cfg.Game.GoalReward,
	})
	if err := connect(cfg, memBroker, peerAdapter); err != nil {
		log.Fatal().Err(err).Msg("connecting peer to the bus")
	}
	if err := peer.Join(); err != nil {
		log.Fatal().Err(err).Msg("sending join request")
	}
	go peer.Run(ctx)

	r := httpapi.SetupRouter(cfg, peer, auth)
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info().Str("addr", addr).Str("room", *room).Msg("maze-runner started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	if err := peer.Close(); err != nil {
		log.Warn().Err(err).Msg("closing peer client")
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
