package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/SCWR/qiankun/internal/config"
	"github.com/SCWR/qiankun/internal/logging"
	"github.com/SCWR/qiankun/internal/server"
)

func main() {
	manifest := flag.String("manifest", "", "Micro-app manifest path (overrides MANIFEST)")
	index := flag.String("index", "", "Shell index HTML path (overrides INDEX_HTML)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *manifest != "" {
		cfg.Shell.Manifest = *manifest
	}
	if *index != "" {
		cfg.Shell.IndexHTML = *index
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build host", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run(net.JoinHostPort(cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case <-sigChan:
		logger.Info("shutting down")
		if err := srv.Close(); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("server error", zap.Error(err))
	}
}
