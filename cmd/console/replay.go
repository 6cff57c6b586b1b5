package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/replay"
)

var followStream bool

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Render a recorded assistant stream",
	Long: `Replay decodes a captured SSE transcript and prints the conversation
the browser would have seen. With --follow the file is tailed as it is
written, for watching a recording in progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVarP(&followStream, "follow", "f", false, "Tail the file as it grows")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	tools := config.DefaultToolsConfig()
	if path := config.GetToolsConfigPath(); path != "" {
		loaded, err := config.LoadToolsConfig(path)
		if err != nil {
			return fmt.Errorf("load tools table: %w", err)
		}
		tools = loaded
	}

	player := replay.NewPlayer(os.Stdout, tools)

	if followStream {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return player.Follow(ctx, args[0])
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open stream file: %w", err)
	}
	defer file.Close()
	return player.Play(file)
}
