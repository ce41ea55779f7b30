package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/tier"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run one maintenance tick: decay recomputation and tier classification",
	Run: func(cmd *cobra.Command, args []string) {
		runMaintain()
	},
}

func init() {
	rootCmd.AddCommand(maintainCmd)
}

func runMaintain() {
	s, _ := openSession()
	defer func() {
		if err := s.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error saving store: %v\n", err)
			os.Exit(1)
		}
	}()

	res, err := s.RunMaintenanceTick()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running maintenance tick: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("run %s: decay recomputed for %d node(s)\n", res.RunID, res.DecayUpdated)
	fmt.Println("tier distribution:")
	for _, t := range []tier.Tier{tier.Hot, tier.Warm, tier.Cold, tier.Frozen} {
		fmt.Printf("  %-6s %d\n", t, res.TierCounts[t])
	}
}
