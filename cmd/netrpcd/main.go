// Command netrpcd is a reference driver demonstrating the module end to
// end: it runs either a host or a client over the UDP transport,
// ticking the manager at the configured pacing, spawning one Actor on
// the host and exercising both a server-bound and a client-bound RPC.
//
// It exists to demonstrate usage, not as a production server (§1/§6:
// the driver loop and CLI are explicitly out of scope for the library
// itself).
package main

import (
	"flag"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/SilvaMendes/netrpc/entity"
	"github.com/SilvaMendes/netrpc/examples/actor"
	"github.com/SilvaMendes/netrpc/manager"
	"github.com/SilvaMendes/netrpc/netrpcconfig"
	"github.com/SilvaMendes/netrpc/spawn"
	"github.com/SilvaMendes/netrpc/transport/udp"
	"github.com/rs/zerolog"
)

func newFactories() *spawn.Registry {
	r := spawn.NewRegistry()
	r.Register(spawn.TypeName(reflect.TypeOf(&actor.Actor{})), func() entity.Entity {
		return &actor.Actor{}
	})
	return r
}

func main() {
	mode := flag.String("mode", "host", "host or client")
	addr := flag.String("addr", "127.0.0.1", "host address to dial (client only; the host binds all interfaces)")
	port := flag.Int("port", 9977, "UDP port")
	maxClients := flag.Int("max-clients", 32, "maximum connected clients (host only)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	cfg := netrpcconfig.New(
		netrpcconfig.WithMaxClients(*maxClients),
		netrpcconfig.WithLogger(logger),
	)

	tr := udp.New(udp.WithLogger(logger.With().Str("component", "transport/udp").Logger()))
	m := manager.New(tr, newFactories(), netrpcconfig.WithMaxClients(cfg.MaxClients), netrpcconfig.WithLogger(cfg.Logger))

	switch *mode {
	case "host":
		runHost(m, logger, *addr, *port)
	case "client":
		runClient(m, logger, *addr, *port)
	default:
		logger.Fatal().Str("mode", *mode).Msg("mode must be host or client")
	}
}

func runHost(m *manager.Manager, logger zerolog.Logger, addr string, port int) {
	_ = addr
	if err := m.StartServer(port); err != nil {
		logger.Fatal().Err(err).Msg("StartServer failed")
	}
	m.OnClientConnected(func(clientID uint32) {
		logger.Info().Uint32("client_id", clientID).Msg("client connected")
	})
	m.OnClientDisconnected(func(clientID uint32) {
		logger.Info().Uint32("client_id", clientID).Msg("client disconnected")
	})

	a, err := m.Spawn(func() entity.Entity { return &actor.Actor{} })
	if err != nil {
		logger.Fatal().Err(err).Msg("Spawn failed")
	}
	player := a.(*actor.Actor)

	runLoop(m, logger, func() {
		_ = player.Say("tick")
	})
}

func runClient(m *manager.Manager, logger zerolog.Logger, addr string, port int) {
	m.OnConnectedToServer(func() {
		logger.Info().Uint32("client_id", m.LocalClientID()).Msg("connected to server")
	})
	m.OnDisconnectedFromServer(func() {
		logger.Info().Msg("disconnected from server")
	})
	if err := m.StartClient(addr, port); err != nil {
		logger.Fatal().Err(err).Msg("StartClient failed")
	}

	runLoop(m, logger, func() {
		for _, h := range m.Registry().All() {
			if a, ok := h.(*actor.Actor); ok {
				_ = a.Move(1, 0)
			}
		}
	})
}

// runLoop drives Update at a fixed ~60Hz pace (§5's single-thread,
// per-tick model) until the process receives SIGINT/SIGTERM, calling
// perTick once per iteration after Update.
func runLoop(m *manager.Manager, logger zerolog.Logger, perTick func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			if err := m.Stop(); err != nil {
				logger.Error().Err(err).Msg("Stop failed")
			}
			return
		case <-ticker.C:
			m.Update()
			perTick()
		}
	}
}
