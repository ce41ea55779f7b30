package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/logindex"
	"github.com/cogmem/cogmem/internal/retrieval"
)

var (
	queryStrategy string
	queryEntities []string
	queryK        int
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a smart-retrieval query across the log-plane indexes",
	Long: `Query fans the request out across the log-plane index subset its
strategy names, fuses their scores, de-dupes by block hash, and packs the
result into the configured token budget.

Examples:
  cogmem query "concurrency patterns"
  cogmem query "parser rewrite" --strategy narrow --entities internal/parser`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runQuery(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryStrategy, "strategy", "s", "broad", "fan-out strategy: broad, narrow, temporal, causal, semantic")
	queryCmd.Flags().StringSliceVarP(&queryEntities, "entities", "e", nil, "entity filter (file paths, tool names)")
	queryCmd.Flags().IntVarP(&queryK, "limit", "l", 10, "maximum hits to print")
}

func runQuery(text string) {
	s, _ := openSession()
	defer s.Close()

	strategy, err := parseStrategy(queryStrategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	res, err := s.Query(context.Background(), retrieval.Request{
		Strategy:  strategy,
		QueryText: text,
		Entities:  queryEntities,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error querying store: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d hit(s), indexes used: %v\n\n", len(res.Hits), res.Coverage.IndexesUsed)
	for i, h := range res.Hits {
		if i >= queryK {
			break
		}
		fmt.Printf("%d. [seq %d] score=%.3f %s\n", i+1, h.Block.Sequence, h.Score, truncate(logindex.ContentText(h.Block.Content), 80))
	}
	if res.Coverage.BudgetExhausted {
		fmt.Println("\n(token budget exhausted before all candidates fit)")
	}
}

func parseStrategy(name string) (retrieval.Strategy, error) {
	switch name {
	case "broad":
		return retrieval.StrategyBroad, nil
	case "narrow":
		return retrieval.StrategyNarrow, nil
	case "temporal":
		return retrieval.StrategyTemporal, nil
	case "causal":
		return retrieval.StrategyCausal, nil
	case "semantic":
		return retrieval.StrategySemantic, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", name)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
