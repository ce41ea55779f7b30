package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/session"
	"github.com/cogmem/cogmem/internal/types"
)

var (
	addType       string
	addConfidence float64
)

var addCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Ingest a new cognitive event",
	Long: `Ingest stores content as a new node in the graph and appends a
matching block to the immortal log.

Examples:
  cogmem add "the parser rejects trailing commas" --type fact
  cogmem add "switched to LL(1) parsing" --type decision --confidence 0.8`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runAdd(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addType, "type", "t", "fact", "event type: fact, decision, inference, correction, skill, episode")
	addCmd.Flags().Float64VarP(&addConfidence, "confidence", "C", 1.0, "confidence in [0.0, 1.0]")
}

func runAdd(content string) {
	evType, ok := types.ParseEventType(addType)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown event type %q\n", addType)
		os.Exit(1)
	}

	s, _ := openSession()
	defer func() {
		if err := s.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error saving store: %v\n", err)
			os.Exit(1)
		}
	}()

	ev, err := s.AddMemory(session.AddMemoryRequest{Type: evType, Content: content, Confidence: addConfidence})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error ingesting event: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("stored node %d (%s, confidence %.2f)\n", ev.ID, ev.Type, ev.Confidence)
}
