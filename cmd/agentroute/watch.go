package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
	"github.com/routeworks/agentroute/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live-tail the routing history",
	Long: `Follow the routing history and print each plan as it is appended.

Useful in a second terminal while prompts are being routed, for example by
an editor hook. Stops on Ctrl+C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	tailer, err := watch.NewTailer(store)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer tailer.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", store.HistoryPath())
	for {
		select {
		case <-sigCh:
			fmt.Println("\nStopped.")
			return nil
		case p, ok := <-tailer.Plans():
			if !ok {
				return nil
			}
			printHistoryLine(p)
		}
	}
}
