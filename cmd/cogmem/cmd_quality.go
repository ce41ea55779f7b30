package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/query"
	"github.com/cogmem/cogmem/internal/types"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Report low-confidence and stale-decay nodes, contradiction edges and orphan decisions",
	Run: func(cmd *cobra.Command, args []string) {
		runQuality()
	},
}

func init() {
	rootCmd.AddCommand(qualityCmd)
}

func runQuality() {
	s, _ := openSession()
	defer s.Close()

	report := s.QueryEngine().Quality(query.QualityParams{
		LowConfidenceThreshold: 0.3,
		StaleDecayThreshold:    0.1,
		MaxExamples:            5,
	})

	fmt.Println("quality report")
	fmt.Println("==============")
	fmt.Printf("total nodes:          %d\n", report.TotalNodes)
	fmt.Printf("low confidence:       %d\n", report.LowConfidenceCount)
	fmt.Printf("stale decay:          %d\n", report.StaleDecayCount)
	fmt.Printf("contradicted:         %d\n", report.ContradictsCount)
	fmt.Printf("orphan decisions:     %d\n", report.OrphanDecisionCount)

	printIDs := func(title string, ids []types.NodeID) {
		if len(ids) == 0 {
			return
		}
		fmt.Printf("\n%s:\n", title)
		for _, id := range ids {
			ev, err := s.QueryEngine().Resolve(id)
			if err != nil {
				continue
			}
			fmt.Printf("  [%d] %s\n", id, truncate(ev.Content, 60))
		}
	}
	printIDs("low-confidence examples", report.LowConfidenceExamples)
	printIDs("stale-decay examples", report.StaleDecayExamples)
	printIDs("orphan-decision examples", report.OrphanDecisionExamples)
}
