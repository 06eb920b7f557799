package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/clawdash/internal/output"
	"github.com/joescharf/clawdash/internal/stream"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live process stream",
	Long: `Subscribe to a running clawdash server's SSE stream and print
board updates as they arrive. Reconnects automatically with backoff
when the connection drops. Press Ctrl-C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchRun()
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "Stream URL (default http://localhost:<port>/api/v1/stream)")
	rootCmd.AddCommand(watchCmd)
}

func watchRun() error {
	url := watchURL
	if url == "" {
		url = fmt.Sprintf("http://localhost:%d/api/v1/stream", viper.GetInt("port"))
	}

	client := stream.NewClient(stream.ClientConfig{URL: url})
	defer client.Close()

	client.On(stream.EventConnectionStatus, func(e stream.Event) {
		if e.Status == stream.StatusConnected {
			ui.Success("Connected to %s", url)
		} else {
			ui.Warning("Disconnected, retrying...")
		}
	})

	client.On(stream.EventProcesses, func(e stream.Event) {
		ts := time.UnixMilli(e.Timestamp).Local().Format("15:04:05")
		counts := make(map[string]int)
		for _, p := range e.Processes {
			counts[string(p.Status)]++
		}
		line := fmt.Sprintf("[%s] %d processes", ts, len(e.Processes))
		for _, status := range []string{"running", "waiting", "idle", "completed", "error"} {
			if counts[status] > 0 {
				line += fmt.Sprintf("  %s:%d", output.StatusColor(status), counts[status])
			}
		}
		fmt.Fprintln(ui.Out, line)

		if verbose {
			for _, p := range e.Processes {
				fmt.Fprintf(ui.Out, "    %s %s  %s\n",
					output.StatusColor(string(p.Status)), output.Cyan(p.Title), p.Description)
			}
		}
	})

	// Terminal stream errors end the watch; transient ones are just noise.
	done := make(chan error, 1)
	client.On(stream.EventError, func(e stream.Event) {
		ui.Error("%s", e.Error)
		if !client.IsConnected() {
			select {
			case done <- fmt.Errorf("stream failed: %s", e.Error):
			default:
			}
		}
	})

	client.Connect()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		fmt.Fprintln(ui.Out)
		ui.Info("Stopping.")
		return nil
	case err := <-done:
		return err
	}
}
