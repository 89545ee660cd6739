package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"portal_scraper/config"
	"portal_scraper/crawler"
	"portal_scraper/httputil"
	"portal_scraper/logging"
	"portal_scraper/scheduler"
	"portal_scraper/scraper"
	"portal_scraper/storage"
	"portal_scraper/workers"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run a crawl immediately (with -daemon, before the schedule starts)")
	daemon    = flag.Bool("daemon", false, "Run on a schedule until interrupted")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting portal_scraper...")
	log.Printf("Portal: %s", cfg.Portal.BaseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqliteStore, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.Storage.DBPath)

	var sink storage.Sink = sqliteStore
	if cfg.Storage.PostgresURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Storage.PostgresURL))
		sink = storage.MultiSink{sqliteStore, pgStore}
	}

	clients := httputil.NewClients()
	api := crawler.NewAPIClient(cfg.Portal.BaseURL, cfg.Portal.UserAgent, clients.API)
	orchestrator := scraper.NewOrchestrator(cfg, sqliteStore, sink, api)

	if !*daemon {
		summary, err := orchestrator.Run(ctx)
		if err != nil {
			log.Fatalf("Crawl failed: %v", err)
		}
		log.Printf("Crawl complete: %d records stored, %d unique listings, %d pages, %d failed",
			summary.RecordsStored, summary.UniqueURLs, summary.PagesProcessed, summary.FailedRecords)
		if cfg.Media.Enabled {
			drainMedia(ctx, cfg, sqliteStore, clients)
		}
		return
	}

	sched := scheduler.New(cfg, orchestrator)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	if *scrapeNow {
		// -scrape alongside -daemon: crawl immediately, then keep the schedule.
		go sched.TriggerNow(ctx)
	}

	if cfg.Media.Enabled {
		mediaWorker := workers.NewMediaWorker(sqliteStore, clients.Media, newUploader(ctx, cfg), cfg.Portal.UserAgent)
		go mediaWorker.Run(ctx, 20, 2*time.Minute)
		log.Println("Media worker started")
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	cancel()
	log.Println("Goodbye!")
}

// drainMedia runs one bounded media pass after a one-shot crawl so mirrored
// images land without needing daemon mode. Returns as soon as the queue is
// empty, 10 minutes at the outside.
func drainMedia(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, clients *httputil.Clients) {
	worker := workers.NewMediaWorker(store, clients.Media, newUploader(ctx, cfg), cfg.Portal.UserAgent)

	drainCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	worker.Drain(drainCtx, 20)
}

func newUploader(ctx context.Context, cfg *config.Config) storage.Uploader {
	if cfg.Media.Bucket == "" {
		log.Println("Media mirror enabled without S3_BUCKET, uploads are no-ops")
		return storage.NoOpUploader{}
	}
	uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
		Bucket:          cfg.Media.Bucket,
		Region:          cfg.Media.Region,
		Endpoint:        cfg.Media.Endpoint,
		AccessKeyID:     cfg.Media.AccessKeyID,
		SecretAccessKey: cfg.Media.SecretAccessKey,
	})
	if err != nil {
		log.Printf("S3 uploader init failed, uploads are no-ops: %v", err)
		return storage.NoOpUploader{}
	}
	return uploader
}

// maskConnectionString hides the password portion of a DSN for logging.
func maskConnectionString(connStr string) string {
	schemeEnd := strings.Index(connStr, "://")
	if schemeEnd < 0 {
		return connStr
	}
	rest := connStr[schemeEnd+3:]
	at := strings.Index(rest, "@")
	if at < 0 {
		return connStr
	}
	colon := strings.Index(rest[:at], ":")
	if colon < 0 {
		return connStr
	}
	return fmt.Sprintf("%s%s:****%s", connStr[:schemeEnd+3], rest[:colon], rest[at:])
}
