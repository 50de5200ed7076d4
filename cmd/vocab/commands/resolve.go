package commands

import (
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <audio-file>",
	Short: "Ask what an audio sample means",
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
		res := a.resolver.Resolve(ctx, buf)
		// The codebook adapts online during transcription, so even a
		// lookup changes state worth keeping.
		if err := a.save(ctx); err != nil {
			return err
		}

		if !res.Matched {
			printWarn("no confident answer")
			printDim("reason: %s", res.Reason)
			if res.Units != "" {
				printDim("units:  %s", res.Units)
			}
			return nil
		}
		printField("Meaning", "%s", res.Meaning)
		printField("Confidence", "%.2f %s", res.Confidence, confidenceBar(res.Confidence))
		printField("Tier", "%s", res.Tier)
		if res.Units != "" {
			printField("Units", "%s", res.Units)
		}
		if res.NeedsConfirmation {
			printWarn("low confidence: confirm with 'vocab confirm %q <audio-file>'", res.Meaning)
		}
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <meaning> <audio-file>",
	Short: "Confirm a resolved meaning for an audio sample",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		buf, err := a.readAudio(args[1])
		if err != nil {
			return err
		}
		if err := a.resolver.Confirm(ctx, args[0], buf); err != nil {
			return err
		}
		if err := a.save(ctx); err != nil {
			return err
		}
		printField("Confirmed", "%s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(confirmCmd)
}
