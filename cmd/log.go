package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/asimzulfiqar/LifeLogger/pkg/config"
	"github.com/asimzulfiqar/LifeLogger/pkg/logbook"
	"github.com/asimzulfiqar/LifeLogger/pkg/store/notion"
)

var logText string

// logCmd appends one text entry without starting the bot, using the same
// "tag: content" split a Telegram text message gets.
var logCmd = &cobra.Command{
	Use:   "log [text]",
	Short: "Append one text entry to the log database",
	Long:  "Classifies the given text like an incoming message and appends it to the configured Notion database.",
	Run: func(cmd *cobra.Command, args []string) {
		text := resolveLogText(args)
		if text == "" {
			fmt.Println("nothing to log: provide text as an argument or via --text")
			return
		}

		_ = godotenv.Load()

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		store, err := notion.New(cfg.Notion, nil)
		if err != nil {
			fmt.Printf("failed to initialize record store: %v\n", err)
			return
		}

		ctx := context.Background()
		if err := store.Check(ctx); err != nil {
			fmt.Printf("record store check failed: %v\n", err)
			return
		}

		timestamp := time.Now().Format(logbook.TimestampLayout)
		tag, content := logbook.SplitTag(text)

		entry := logbook.Entry{
			Timestamp: timestamp,
			Type:      logbook.TypeMessage,
			Content:   content,
			Tag:       tag,
		}
		if err := store.CreateEntry(ctx, entry); err != nil {
			fmt.Printf("failed to append entry: %v\n", err)
			return
		}

		fmt.Printf("Saved to Notion: %s: message : %s\n", timestamp, content)
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().StringVarP(&logText, "text", "t", "", "entry text to append")
}

func resolveLogText(args []string) string {
	if value := strings.TrimSpace(logText); value != "" {
		return value
	}

	if len(args) == 0 {
		return ""
	}

	return strings.TrimSpace(strings.Join(args, " "))
}
