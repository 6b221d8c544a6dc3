package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"tilesink/pkg/app"
	"tilesink/pkg/config"
	"tilesink/pkg/logging"
	"tilesink/pkg/rpc"
	"tilesink/pkg/server"
	"tilesink/pkg/service"

	"github.com/spf13/viper"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is ./.tilesink/config.yaml)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := logging.Default(*verbose)
	if err := config.Load(*cfgFile); err != nil {
		logger.Fatal("❌ Config error", "err", err)
	}
	viper.Set("verbose", *verbose)

	// 2. Init Core Application
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, logger)
	if err != nil {
		logger.Fatal("❌ Failed to initialize app", "err", err)
	}
	defer application.Close()
	logger.Info("✅ tilesink core initialized", "storage", application.Storage.URL("/"))

	// 3. Setup Network
	addr := viper.GetString("server.addr")
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal("❌ Failed to listen", "addr", addr, "err", err)
	}

	// 4. Setup gRPC Server
	grpcServer := server.New(logging.Slog(logger))
	rpc.RegisterSinkServiceServer(grpcServer, service.NewSinkRPC(service.NewExportService(application)))

	// grpcurl 等调试工具可以列出服务
	reflection.Register(grpcServer)

	// 5. Start Server (Async)
	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("🚀 gRPC Server listening on %s...", addr))
		errCh <- grpcServer.Serve(lis)
	}()

	// 6. Graceful Shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("❌ Failed to serve", "err", err)
			os.Exit(1)
		}
	}

	logger.Warn("⚠️  Shutting down server...")
	grpcServer.GracefulStop()
	logger.Info("👋 Server stopped.")
}
