package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write a fresh graph snapshot and advance its recovery marker",
	Run: func(cmd *cobra.Command, args []string) {
		runSave()
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
}

func runSave() {
	s, cfg := openSession()

	if err := s.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error saving store: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("saved graph snapshot to %s\n", cfg.Store.GraphPath)
}
