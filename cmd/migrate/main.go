package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lk2023060901/filestore-backend/internal/conf"
	"github.com/lk2023060901/filestore-backend/internal/data"
	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "config file path")
	timeout    = flag.Duration("timeout", 5*time.Minute, "migration timeout")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] up|status\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	db, err := database.New(&config.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	sqlDB, err := db.SQLDB()
	if err != nil {
		log.Fatal("failed to get sql.DB", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case "up":
		err = data.RunMigrations(ctx, sqlDB)
	case "status":
		err = data.MigrationStatus(ctx, sqlDB)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}

	log.Info("migration finished", zap.String("command", command))
}
