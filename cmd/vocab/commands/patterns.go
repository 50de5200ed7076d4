package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/vocab/pkg/blob"
	"github.com/haivivi/vocab/pkg/pattern"
	"github.com/haivivi/vocab/pkg/segment"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Discover, list, and prune compositional patterns",
}

var patternsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Run a pattern discovery pass over stored recordings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		// The resolver only holds audio learned this process; reload
		// everything from the blob store for a full pass.
		examples, err := a.st.Examples(ctx)
		if err != nil {
			return err
		}
		var utts []pattern.Utterance
		for _, ex := range examples {
			if ex.AudioRef == "" {
				continue
			}
			buf, err := blob.LoadRecording(ctx, a.blobs, ex.AudioRef)
			if err != nil {
				printWarn("skip %s: %v", ex.ID, err)
				continue
			}
			utts = append(utts, pattern.Utterance{
				ID:          ex.ID,
				Explanation: ex.Explanation,
				Audio:       buf,
			})
		}
		if len(utts) == 0 {
			printWarn("no stored recordings to mine")
			return nil
		}

		segx := segment.NewExtractor(a.ext, segment.Config{})
		miner := pattern.NewMiner(segx, pattern.MinerConfig{})
		added, err := miner.Discover(ctx, utts, a.coll)
		if err != nil {
			return err
		}
		if err := a.save(ctx); err != nil {
			return err
		}
		printField("Mined", "%d new patterns from %d recordings", added, len(utts))
		printField("Total", "%d", a.coll.Len())
		return nil
	},
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered patterns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		patterns := a.coll.All()
		if len(patterns) == 0 {
			printDim("no patterns discovered yet")
			return nil
		}
		for _, p := range patterns {
			meaning, consistency := p.ModalMeaning()
			fmt.Printf("%s %s\n", labelStyle.Render(meaning), dimStyle.Render(p.ID[:8]))
			fmt.Printf("  conf %.2f %s  freq %d  pos %.2f  cohesion %.2f  consistency %.2f\n",
				p.Confidence, confidenceBar(float64(p.Confidence)),
				p.Frequency, p.AvgPosition, p.Cohesion, consistency)
		}
		return nil
	},
}

var pruneKeep int

var patternsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove patterns that no longer pass validation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		v := pattern.DefaultValidator()
		var removed int
		if pruneKeep > 0 {
			removed = a.coll.AggressivePrune(v, pruneKeep)
		} else {
			removed = a.coll.Prune(v)
		}
		if err := a.save(ctx); err != nil {
			return err
		}
		printField("Pruned", "%d", removed)
		printField("Remaining", "%d", a.coll.Len())
		return nil
	},
}

func init() {
	patternsPruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "also cap the collection to the N most confident patterns")
	patternsCmd.AddCommand(patternsMineCmd)
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsPruneCmd)
	rootCmd.AddCommand(patternsCmd)
}
