package main

import (
	"context"
	"embed"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/app"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"

	// Storage adapters register themselves at init time.
	_ "github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage/gcs"
	_ "github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage/local"

	// Database dialectors register themselves at init time.
	_ "github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository/driver/mysql"
	_ "github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository/driver/postgres"
	_ "github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository/driver/sqlite"
)

// embeddedConfig holds the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// migrationsFS holds the per-dialect metadata schema migrations.
//
//go:embed resources/migrations
var migrationsFS embed.FS

func main() {
	var (
		startDate   = flag.String("start", "", "first pickup date of the run (YYYY-MM-DD)")
		endDate     = flag.String("end", "", "last pickup date of the run (YYYY-MM-DD, inclusive)")
		envFilePath = flag.String("env-file", ".env", "path to the environment file")
	)
	flag.Parse()

	if *startDate == "" || *endDate == "" {
		logger.Fatalf("Both -start and -end dates are required (YYYY-MM-DD).")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warnf("Received signal %v. Cancelling the run; committed partitions are unaffected.", sig)
		cancel()

		// A second signal forces exit.
		select {
		case <-sigCh:
			logger.Errorf("Received second signal. Forcing exit.")
			os.Exit(1)
		case <-time.After(30 * time.Second):
		}
	}()

	app.RunApplication(ctx, *envFilePath, embeddedConfig, migrationsFS, *startDate, *endDate)
}
