package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued analyses",
	Long:  `Run only the RabbitMQ consumer pool that processes analyses created through POST /api/analyses.`,
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerCount, "workers", 3, "Number of queue workers")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Infra.Validate(); err != nil {
		return err
	}
	setupLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	closeInfra, err := app.connectInfra(ctx, cfg.Infra)
	if err != nil {
		return err
	}
	defer closeInfra()

	return app.StartConsumerWorkerPool(ctx, max(1, workerCount))
}
