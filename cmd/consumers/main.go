package main

import (
	"os"
	"os/signal"
	"syscall"

	"anjoman/internal/config"
	"anjoman/internal/consumers"
	"anjoman/internal/logger"
	"anjoman/internal/messaging"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	natsCfg := cfg.NATS
	natsCfg.ClientID = natsCfg.ClientID + "-consumers"

	natsClient, err := messaging.NewNATSClient(natsCfg)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}
	defer natsClient.Close()

	runner := consumers.NewRunner(natsClient, consumers.LogNotifier{})
	if err := runner.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	logger.Get().Info("Consumers started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down consumers...")
	runner.Stop()
}
