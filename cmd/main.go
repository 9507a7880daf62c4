package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ridematch/api"
	"ridematch/config"
	"ridematch/pkg/bot"
	"ridematch/pkg/events"
	"ridematch/pkg/logger"
	"ridematch/service"
	"ridematch/storage"
	"ridematch/storage/memory"
	"ridematch/storage/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stg, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", logger.Error(err))
		os.Exit(1)
	}
	defer stg.Close()

	pub, err := openPublisher(cfg)
	if err != nil {
		log.Error("failed to connect event broker", logger.String("broker", cfg.EventsBroker), logger.Error(err))
		os.Exit(1)
	}
	defer pub.Close()

	svc := service.New(stg, pub, log)

	if cfg.TelegramBotToken != "" {
		tg, err := bot.New(&cfg, svc, log)
		if err != nil {
			log.Error("failed to initialize telegram bot", logger.Error(err))
			os.Exit(1)
		}
		go tg.Start()
		defer tg.Stop()
	}

	srv := api.NewServer(cfg, svc, stg.Ping, log)
	log.Info("ridematch is running",
		logger.String("storage", cfg.StorageDriver),
		logger.String("broker", cfg.EventsBroker),
	)
	if err := srv.Run(ctx); err != nil {
		log.Error("http server stopped", logger.Error(err))
		os.Exit(1)
	}
	log.Info("shutting down")
}

func openStorage(ctx context.Context, cfg config.Config, log logger.ILogger) (storage.IStorage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warning("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	case config.StorageDriverPostgres:
		pg, err := postgres.New(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func openPublisher(cfg config.Config) (events.Publisher, error) {
	switch cfg.EventsBroker {
	case config.BrokerKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case config.BrokerRabbitMQ:
		pub, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		return pub, nil
	}
	return events.NewNop(), nil
}
