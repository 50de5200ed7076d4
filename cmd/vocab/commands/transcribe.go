package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/vocab/pkg/phonetic"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Print the phonetic-unit transcription of a sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		buf, err := a.readAudio(args[0])
		if err != nil {
			return err
		}
		trans := phonetic.NewTranscriber(a.ext, a.quant, phonetic.TranscriberConfig{})
		units, err := trans.Transcribe(ctx, buf)
		if err != nil {
			return err
		}
		if err := a.save(ctx); err != nil {
			return err
		}

		if units.IsEmpty() {
			printWarn("no speech detected")
			return nil
		}
		printField("Units", "%s", units.String())
		printField("Length", "%d", len(units.Units))
		printDim("codebook: %d/%d clusters active", a.quant.ActiveClusters(), a.quant.K())
		return nil
	},
}

var distanceCmd = &cobra.Command{
	Use:   "distance <audio-file-a> <audio-file-b>",
	Short: "Compare two samples phonetically",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		trans := phonetic.NewTranscriber(a.ext, a.quant, phonetic.TranscriberConfig{})
		var units [2]phonetic.Transcription
		for i, path := range args {
			buf, err := a.readAudio(path)
			if err != nil {
				return err
			}
			if units[i], err = trans.Transcribe(ctx, buf); err != nil {
				return err
			}
		}
		if err := a.save(ctx); err != nil {
			return err
		}

		sa, sb := units[0].String(), units[1].String()
		res := phonetic.Distance(sa, sb)
		sim := phonetic.Similarity(sa, sb)
		printField("A", "%s", sa)
		printField("B", "%s", sb)
		printField("Distance", "%d (ins %d, del %d, sub %d)",
			res.Distance, res.Insertions, res.Deletions, res.Substitutions)
		printField("Similarity", "%.2f %s", sim, confidenceBar(sim))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(distanceCmd)
}
