package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/asimzulfiqar/LifeLogger/pkg/bot"
	"github.com/asimzulfiqar/LifeLogger/pkg/channel"
	"github.com/asimzulfiqar/LifeLogger/pkg/channel/telegram"
	"github.com/asimzulfiqar/LifeLogger/pkg/config"
	"github.com/asimzulfiqar/LifeLogger/pkg/logger"
	"github.com/asimzulfiqar/LifeLogger/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the life-logging bot",
	Long:  "Connects to Telegram, validates the Notion database, and logs every incoming message until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		// Local dev convenience only; production relies on real env.
		_ = godotenv.Load()

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("invalid configuration: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		telemetry.Init()

		adapter, err := telegram.NewAdapter(cfg.Telegram, appLogger)
		if err != nil {
			log.Error("Failed to configure telegram channel", "error", err)
			return
		}

		svc, err := bot.NewService(cfg, []channel.Adapter{adapter}, adapter, appLogger)
		if err != nil {
			log.Error("Failed to initialize bot service", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Bot started", "channel", adapter.Name(), "downloads_dir", cfg.DownloadsDir())
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Bot runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
