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

	router "github.com/jesus-bazan-entel/apoloteams/internal/adapters/http"
	"github.com/jesus-bazan-entel/apoloteams/internal/api"
	"github.com/jesus-bazan-entel/apoloteams/internal/app"
	"github.com/jesus-bazan-entel/apoloteams/internal/call"
	"github.com/jesus-bazan-entel/apoloteams/internal/config"
	"github.com/jesus-bazan-entel/apoloteams/internal/core"
	"github.com/jesus-bazan-entel/apoloteams/internal/media"
	"github.com/jesus-bazan-entel/apoloteams/internal/rtc"
	"github.com/jesus-bazan-entel/apoloteams/internal/state"
	"github.com/jesus-bazan-entel/apoloteams/internal/transport"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Token == "" {
		log.Fatal().Msg("no token configured, set token in config or APOLO_TOKEN")
	}

	backend := api.NewClient(cfg.APIBase, core.StaticToken(cfg.Token))
	self, err := backend.Me(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve identity")
	}
	log.Info().Str("user", string(self.ID)).Str("username", self.Username).Msg("authenticated identity")

	store := state.NewStore()

	msgRouter := transport.NewRouter()
	conn := transport.NewManager(transport.ManagerConfig{
		URL:               cfg.WSURL,
		ReconnectDelay:    cfg.ReconnectDelay,
		ReconnectAttempts: cfg.ReconnectAttempts,
	}, msgRouter)
	conn.OnStateChange(func(s transport.State) {
		store.SetConnection(s.String())
	})

	devices, err := media.NewDevices()
	if err != nil {
		log.Fatal().Err(err).Msg("init media devices")
	}
	factory, err := rtc.NewFactory(devices.Populate)
	if err != nil {
		log.Fatal().Err(err).Msg("init peer connection factory")
	}

	calls := call.NewController(self, backend, devices, conn, store, factory)
	calls.Bind(msgRouter)

	events := app.NewEvents(store)
	events.Bind(msgRouter)

	if err := conn.Connect(cfg.Token); err != nil {
		// Reconnection is already scheduled; the UI still comes up.
		log.Warn().Err(err).Msg("initial connect failed")
	}

	r := router.SetupRouter(cfg, router.Deps{Store: store, Calls: calls, Conn: conn})
	addr := fmt.Sprintf(":%d", cfg.UIPort)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("client UI started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	conn.Disconnect()
	log.Info().Msg("Client exited gracefully")
}
