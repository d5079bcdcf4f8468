package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contractscout/internal/core/version"
	"contractscout/internal/platform/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// secrets (GITHUB_TOKENS, TELEGRAM_TOKEN, TELEGRAM_CHAT_ID) usually live in .env
	_ = godotenv.Load()
	logger.Init(logger.FromEnv())

	root := &cobra.Command{
		Use:           "contractscout",
		Short:         "Watch block explorers for verified contracts that already have public source",
		Version:       version.Info().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(watchCmd(), exportCmd(), searchCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
