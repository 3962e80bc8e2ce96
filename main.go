package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beka-birhanu/battleship-server/api"
	"github.com/beka-birhanu/battleship-server/auth"
	"github.com/beka-birhanu/battleship-server/config"
	"github.com/beka-birhanu/battleship-server/logger"
	"github.com/beka-birhanu/battleship-server/metrics"
	"github.com/beka-birhanu/battleship-server/service"
	"github.com/beka-birhanu/battleship-server/service/i"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownGrace = 5 * time.Second

// Global variables for dependencies
var (
	appCtx     context.Context
	registry   *prometheus.Registry
	authStore  i.Authenticator
	matchRoom  *service.MatchRoom
	grpcServer *grpc.Server
	httpServer *http.Server
	appLogger  *logger.Logger
)

func mustLogger(prefix, color string) *logger.Logger {
	l, err := logger.New(prefix, color, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating %s logger: %v\n", prefix, err)
		os.Exit(1)
	}
	return l
}

func initMetrics() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appLogger.Info("Metrics registry initialized")
}

func initAuth() {
	store, err := auth.NewStore(config.Envs.SeedUsers)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Seeding credential store: %v", err))
		os.Exit(1)
	}
	authStore = store
	appLogger.Info(fmt.Sprintf("Credential store initialized with %d accounts", len(config.Envs.SeedUsers)))
}

func initMatchRoom() {
	room, err := service.NewMatchRoom(
		&service.Config{
			Auth:                authStore,
			Logger:              mustLogger("MATCH-ROOM", config.ColorCyan),
			Metrics:             metrics.New(registry),
			PlacementTimeout:    config.Envs.PlacementTimeout,
			TurnTimeout:         config.Envs.TurnTimeout,
			InactivityTimeout:   config.Envs.InactivityTimeout,
			OutboundBufferSize:  config.Envs.OutboundBufferSize,
			SpectatorsByDefault: config.Envs.SpectatorsByDefault,
		},
	)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating match room: %v", err))
		os.Exit(1)
	}
	matchRoom = room
	appLogger.Info("Match room initialized")
}

func initGrpc() {
	grpcServer = grpc.NewServer(grpc.ForceServerCodec(api.Codec{}))
	err := api.RegisterLobbyServer(grpcServer, matchRoom, mustLogger("GRPC", config.ColorBlue))
	if err != nil {
		appLogger.Error(fmt.Sprintf("Registering lobby service: %v", err))
		os.Exit(1)
	}
	appLogger.Info("gRPC lobby initialized")
}

func initWebsocket() {
	wsLogger := mustLogger("WEBSOCKET", config.ColorPurple)
	httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.WsPort),
		Handler:           api.NewMux(api.NewWebsocketHandler(appCtx, matchRoom, wsLogger), registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	appLogger.Info("WebSocket endpoint initialized")
}

func main() {
	appLogger = mustLogger("APP", config.ColorGreen)
	defer func() { _ = appLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	appCtx = ctx

	initMetrics()
	initAuth()
	initMatchRoom()
	initGrpc()
	initWebsocket()

	grpcAddr := fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.GrpcPort)
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Listening tcp: %v", err))
		os.Exit(1)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		appLogger.Info(fmt.Sprintf("Serving gRPC at: %s", grpcAddr))
		return grpcServer.Serve(grpcListener)
	})
	eg.Go(func() error {
		appLogger.Info(fmt.Sprintf("Serving WebSocket and metrics at: %s", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		appLogger.Info("Shutting down")
		matchRoom.StopAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		appLogger.Error(fmt.Sprintf("Server stopped: %v", err))
		os.Exit(1)
	}
}
