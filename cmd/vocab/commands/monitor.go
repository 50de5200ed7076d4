package commands

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/vocab/pkg/diag"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve live telemetry over WebSocket",
	Long: `Serves learner telemetry for a dashboard:

  GET /state   one JSON snapshot
  GET /ws      WebSocket stream of snapshots

The address comes from the "monitor" config setting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		col := diag.NewCollector()
		m := diag.NewMonitor(col, diag.MonitorConfig{Addr: a.settings.Monitor})
		if err := m.Start(); err != nil {
			return err
		}
		printField("Monitor", "http://%s/state", m.Addr())

		// Refresh state sizes on a slow loop. Frame and resolution
		// telemetry arrives when the pipeline runs in this process.
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		for {
			col.ObserveState(
				a.quant.ActiveClusters(),
				a.quant.Total(),
				len(a.cls.Meanings()),
				a.coll.Len(),
				len(a.resolver.Examples()),
			)
			select {
			case <-ticker.C:
			case <-stop:
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return m.Close(shutdownCtx)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
