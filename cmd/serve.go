package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/clawdash/internal/api"
	"github.com/joescharf/clawdash/internal/daemon"
	"github.com/joescharf/clawdash/internal/metrics"
	"github.com/joescharf/clawdash/internal/snapshot"
	"github.com/joescharf/clawdash/internal/store"
	"github.com/joescharf/clawdash/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Start the HTTP server that backs the dashboard.

Exposes REST endpoints under /api/v1 (sessions, cron-jobs,
gateway-status, processes), an SSE stream at /api/v1/stream, and
Prometheus metrics at /metrics. By default it listens on port 8787.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := viper.GetInt("port")

		pidPath := filepath.Join(filepath.Dir(viper.GetString("db_path")), "clawdash-serve.pid")
		pidFile := daemon.NewPIDFile(pidPath)
		if err := pidFile.Acquire(); err != nil {
			return fmt.Errorf("server %w", err)
		}
		defer pidFile.Remove()

		logLevel := slog.LevelInfo
		if verbose {
			logLevel = slog.LevelDebug
		}
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

		m := metrics.New()
		gw := getGateway()
		collector := snapshot.NewCollector(gw, log, m)

		broadcaster := stream.NewBroadcaster(collector, log, m)
		broadcaster.DataInterval = viper.GetDuration("stream.data_interval")
		broadcaster.HeartbeatInterval = viper.GetDuration("stream.heartbeat_interval")

		cache, err := store.NewSQLiteStore(viper.GetString("db_path"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer cache.Close()
		if err := cache.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		srv := api.NewServer(gw, collector, broadcaster, cache, m, log)

		addr := fmt.Sprintf(":%d", port)
		log.Info("serving dashboard API", "addr", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8787, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
