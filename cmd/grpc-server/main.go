package main

import (
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"poetryhub/internal/app"
	"poetryhub/internal/grpcserver"
	"poetryhub/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "TOML config file (default $POETRYHUB_CONFIG)")
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	a, err := app.Build(cfg)
	if err != nil {
		slog.Error("build backends", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	listener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		slog.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	grpcserver.RegisterPoetryServiceServer(grpcServer, grpcserver.NewServer(a.Dispatcher))

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("stopping gRPC server")
		grpcServer.GracefulStop()
	}()

	slog.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr, "backend", a.Dispatcher.Current())
	if err := grpcServer.Serve(listener); err != nil {
		slog.Error("grpc server stopped", "error", err)
		os.Exit(1)
	}
}
