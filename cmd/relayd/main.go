// Command relayd is the world relay's entrypoint: it loads config,
// wires storage, wallet, world state, the train simulator, and the
// websocket listener together, and serves until killed — following
// the teacher's cmd/miner wiring shape (slowdrip-miner/cmd/miner/main.go),
// generalized from an HTTP media-control API to this relay's single
// websocket endpoint plus an internal stats endpoint.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"thestreet/internal/command"
	"thestreet/internal/config"
	"thestreet/internal/logging"
	"thestreet/internal/session"
	"thestreet/internal/state"
	"thestreet/internal/stats"
	"thestreet/internal/storage"
	"thestreet/internal/train"
	"thestreet/internal/transport"
	"thestreet/internal/wallet"
)

const (
	trainCount = 6
	trainSpeed = 8.0 // tiles/second
)

func main() {
	cfgPath := os.Getenv("RELAY_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/relay.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.LogLevel)

	store := storage.NewFileStore(cfg.DataDir)

	world := state.New()
	if users, err := store.LoadUsers(); err != nil {
		log.Error().Err(err).Msg("load users failed; starting empty")
	} else {
		world.LoadUsers(toUserSeeds(users))
	}
	if rooms, err := store.LoadRooms(); err != nil {
		log.Error().Err(err).Msg("load rooms failed; starting empty")
	} else {
		world.LoadRooms(toRoomSeeds(rooms))
	}

	wal := wallet.NewMock()
	router := command.New(world, wal, store, cfg, log)

	fleet := train.NewFleet(trainCount, trainSpeed)
	sim := train.New(fleet, world, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sim.Run(ctx)

	machine := session.New(world, router, wal, fleet, cfg, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := transport.Accept(w, r)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		go machine.Run(conn)
	})
	if cfg.InternalStats.Enable {
		mux.HandleFunc("/internal/stats", internalStatsHandler(cfg.InternalStats.Token))
	}

	srv := &http.Server{
		Addr:              cfg.Bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go gracefulShutdown(srv, cancel, log)

	log.Info().Str("bind", cfg.Bind).Msg("relay listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// internalStatsHandler serves the operator stats snapshot, gated by a
// bearer token the way the teacher's internal endpoints are gated
// (server/internal_stats.go).
func internalStatsHandler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.SnapshotNow())
	}
}

func gracefulShutdown(srv *http.Server, cancel context.CancelFunc, log zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
	cancel()
	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = srv.Shutdown(ctx)
}

func toUserSeeds(records []storage.UserRecord) []state.UserSeed {
	out := make([]state.UserSeed, 0, len(records))
	for _, u := range records {
		out = append(out, state.UserSeed{
			ID: u.ID, Pubkey: u.Pubkey, DisplayName: u.DisplayName,
			MapID: u.MapID, X: u.X, Y: u.Y, X25519Pubkey: u.X25519Pubkey,
		})
	}
	return out
}

func toRoomSeeds(records []storage.RoomRecord) []state.RoomSeed {
	out := make([]state.RoomSeed, 0, len(records))
	for _, r := range records {
		out = append(out, state.RoomSeed{
			ID: r.ID, OwnerPubkey: r.OwnerPubkey, Price: r.Price, ForSale: r.ForSale,
			AccessMode: r.AccessMode, DisplayName: r.DisplayName, DoorColor: r.DoorColor,
			AccessList: append([]string(nil), r.AccessList...),
		})
	}
	return out
}
