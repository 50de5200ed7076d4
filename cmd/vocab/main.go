// Package main is the entry point for the vocab CLI.
//
// Usage:
//
//	vocab [flags] <command> [args]
//
// Commands:
//
//	learn      - Record a caregiver explanation for an audio sample
//	resolve    - Ask what an audio sample means
//	confirm    - Confirm a resolved meaning
//	transcribe - Print the phonetic-unit transcription of a sample
//	distance   - Compare two samples phonetically
//	patterns   - Discover, list, and prune compositional patterns
//	stats      - Show learner state
//	monitor    - Serve live telemetry over WebSocket
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/vocab/cmd/vocab/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
