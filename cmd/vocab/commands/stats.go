package commands

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learner state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		printField("Codebook", "%d/%d clusters active, %d observations",
			a.quant.ActiveClusters(), a.quant.K(), a.quant.Total())
		printField("Purity", "%.2f %s", a.quant.Purity(), confidenceBar(a.quant.Purity()))
		printField("Meanings", "%d", len(a.cls.Meanings()))
		for _, m := range a.cls.Meanings() {
			printDim("  %s", m)
		}
		printField("Patterns", "%d", a.coll.Len())
		printField("Examples", "%d", len(a.resolver.Examples()))
		if last := a.coll.LastDiscovery(); !last.IsZero() {
			printDim("last discovery: %s", last.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
