// Command deltapool-server runs a standalone deltapool.Engine against a
// small synthetic world and serves it over gRPC, so the replication
// engine can be exercised end-to-end without a full game attached.
//
// Usage:
//
//	go run ./cmd/deltapool-server [flags]
//
// Flags:
//
//	-addr       Listen address (default: localhost:50151)
//	-config     Path to an EngineTuning JSON file (optional)
//	-telemetry  Path to a SQLite file recording every transmitted delta (optional)
//	-orbiters   Number of synthetic orbiting objects (default: 8)
//	-hz         Simulation tick rate (default: 35, matching the original engine's TICRATE)
package main

import (
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/doomsday-net/deltapool/internal/config"
	"github.com/doomsday-net/deltapool/internal/deltapool"
	"github.com/doomsday-net/deltapool/internal/telemetry"
	"github.com/doomsday-net/deltapool/internal/transport"
	pb "github.com/doomsday-net/deltapool/internal/transport/deltapoolpb"
)

func main() {
	addr := flag.String("addr", "localhost:50151", "Listen address")
	configPath := flag.String("config", "", "Path to an EngineTuning JSON file")
	telemetryPath := flag.String("telemetry", "", "Path to a SQLite file recording every transmitted delta")
	debugAddr := flag.String("debug-addr", "", "If set, serve a tailsql console over the telemetry db at this address")
	orbiters := flag.Int("orbiters", 8, "Number of synthetic orbiting objects")
	hz := flag.Float64("hz", 35, "Simulation tick rate")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tuning := config.EmptyEngineTuning()
	if *configPath != "" {
		loaded, err := config.LoadEngineTuning(*configPath)
		if err != nil {
			log.Error("failed to load tuning config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		tuning = loaded
	}

	var sink *telemetry.Sink
	if *telemetryPath != "" {
		s, err := telemetry.Open(*telemetryPath)
		if err != nil {
			log.Error("failed to open telemetry sink", "path", *telemetryPath, "err", err)
			os.Exit(1)
		}
		defer s.Close()
		sink = s
		log.Info("telemetry recording enabled", "path", *telemetryPath)

		if *debugAddr != "" {
			mux := http.NewServeMux()
			if err := sink.AttachDebugRoutes(mux); err != nil {
				log.Error("failed to attach debug routes", "err", err)
				os.Exit(1)
			}
			go func() {
				log.Info("debug console listening", "addr", *debugAddr)
				if err := http.ListenAndServe(*debugAddr, mux); err != nil {
					log.Error("debug console stopped", "err", err)
				}
			}()
		}
	}

	world := newSyntheticWorld(*orbiters)
	engine := deltapool.NewEngine(log, tuning)
	engine.InitPools(world)

	srv := transport.NewServer(engine, jsonCodec{}, world, log)
	if sink != nil {
		srv.OnTransmit = func(idx deltapool.ClientIndex, d *deltapool.Delta) {
			if err := sink.Record(telemetry.Event{
				ClientIdx: int(idx),
				Kind:      int(d.Kind),
				ObjectID:  d.ID,
				Flags:     uint32(d.Flags),
				Score:     d.Score,
				Set:       d.Set,
				Resend:    d.Resend,
				Tic:       int32(world.Tic()),
			}); err != nil {
				log.Warn("telemetry record failed", "err", err)
			}
		}
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Error("failed to listen", "addr", *addr, "err", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	pb.RegisterDeltaPoolServer(grpcServer, srv)

	go runTickLoop(engine, world, *hz)

	go func() {
		log.Info("deltapool-server listening", "addr", *addr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server stopped", "err", err)
		}
	}()

	waitForShutdown(log)
	grpcServer.GracefulStop()
}

func runTickLoop(engine *deltapool.Engine, world *syntheticWorld, hz float64) {
	interval := time.Duration(float64(time.Second) / hz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var tic deltapool.Tic
	for range ticker.C {
		tic++
		world.Advance(tic)
		engine.GenerateFrameDeltas(world.Objects())
	}
}

func waitForShutdown(log *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
}
