package main

import (
	"context"
	"flag"
	"os"

	"ridematch/config"
	"ridematch/pkg/logger"
	"ridematch/storage/postgres"
)

func main() {
	withAccounts := flag.Bool("accounts", false, "also remove accounts")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	pg, err := postgres.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pg.Close()

	// Ride data goes; accounts stay unless asked for.
	query := "TRUNCATE TABLE payments, ride_rejections, rides, ride_requests RESTART IDENTITY"
	if *withAccounts {
		query = "TRUNCATE TABLE payments, ride_rejections, rides, ride_requests, accounts RESTART IDENTITY CASCADE"
	}

	if _, err := pg.GetPool().Exec(context.Background(), query); err != nil {
		log.Error("failed to truncate tables", logger.Error(err))
		os.Exit(1)
	}
	log.Info("tables truncated", logger.Bool("accounts", *withAccounts))
}
