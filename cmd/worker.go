package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	documentPostgres "github.com/frahmantamala/policy-register/internal/document/postgres"
	"github.com/frahmantamala/policy-register/internal/maintenance"
	"github.com/frahmantamala/policy-register/internal/storage"
	"github.com/frahmantamala/policy-register/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background maintenance workers",
	Long:  `Start the scheduled maintenance workers that sweep stored documents.`,
}

var blobCheckWorkerCmd = &cobra.Command{
	Use:   "blobcheck",
	Short: "Start the blob integrity sweep",
	Long:  `Periodically verify that every version in the document history still has its file in storage.`,
	Run: func(cmd *cobra.Command, args []string) {
		startBlobCheckWorker()
	},
}

var (
	maxWorkers   int
	jobQueueSize int
	schedule     string
	runOnce      bool
)

func startBlobCheckWorker() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := logger.Service("worker")

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := initGorm(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize orm: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.New(ctx, config.Storage, logger.Service("storage"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	// Use command line flags if provided, otherwise use config values
	checkConfig := maintenance.Config{
		Workers:   getIntFlag(maxWorkers, config.Maintenance.Workers),
		QueueSize: getIntFlag(jobQueueSize, config.Maintenance.QueueSize),
	}
	spec := getStringFlag(schedule, config.Maintenance.BlobCheckSchedule)

	lg.Info("starting blob check worker",
		"workers", checkConfig.Workers,
		"queue_size", checkConfig.QueueSize,
		"schedule", spec,
		"storage", blobs.Name())

	checker := maintenance.NewBlobChecker(documentPostgres.NewDocumentRepository(gormDB), blobs, checkConfig, lg)

	if runOnce {
		report, err := checker.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Blob check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("checked %d versions, %d missing, %d failed\n", report.Checked, len(report.Missing), report.Failed)
		if len(report.Missing) > 0 {
			os.Exit(2)
		}
		return
	}

	scheduler := maintenance.NewScheduler(spec, checker, lg)
	if err := scheduler.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start scheduler: %v\n", err)
		os.Exit(1)
	}

	lg.Info("blob check worker is running. Press Ctrl+C to stop.")

	// wait for shutdown signal
	<-ctx.Done()
	lg.Info("received signal, shutting down blob check worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	lg.Info("blob check worker shutdown complete")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	blobCheckWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	blobCheckWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	blobCheckWorkerCmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule (overrides config)")
	blobCheckWorkerCmd.Flags().BoolVar(&runOnce, "once", false, "Run a single sweep and exit; exit code 2 when blobs are missing")

	workerCmd.AddCommand(blobCheckWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
