package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/vocab/pkg/blob"
)

var learnCmd = &cobra.Command{
	Use:   "learn <audio-file> <explanation...>",
	Short: "Record a caregiver explanation for an audio sample",
	Args:  cobra.MinimumNArgs(2),
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
		explanation := strings.Join(args[1:], " ")

		ex, err := a.resolver.Learn(ctx, buf, explanation)
		if err != nil {
			return err
		}
		ex.AudioRef = "rec/" + ex.ID
		if err := blob.SaveRecording(ctx, a.blobs, ex.AudioRef, buf); err != nil {
			return fmt.Errorf("save recording: %w", err)
		}
		if err := a.st.PutExample(ctx, ex); err != nil {
			return err
		}
		if err := a.save(ctx); err != nil {
			return err
		}

		printField("Learned", "%s", explanation)
		printField("Example", "%s", ex.ID)
		printField("Units", "%s", ex.Transcription().String())
		printDim("recording stored at %s", ex.AudioRef)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(learnCmd)
}
