package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/session"
	"github.com/cogmem/cogmem/pkg/config"
)

// Version is set during build.
var Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "cogmem",
	Short:   "Cognitive graph memory store",
	Version: Version,
	Long: `cogmem stores cognitive events — facts, decisions, inferences,
corrections, skills, episodes — as a content-addressed, hash-chained log
and an in-memory graph indexed for pattern, similarity, causal, temporal
and hybrid text+vector queries.

Examples:
  cogmem add "channels are typed pipes between goroutines" --type fact
  cogmem query "concurrency patterns" --strategy semantic
  cogmem quality
  cogmem maintain
  cogmem save`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (not read: config is always looked up in ./config.yaml, ~/.cogmem/config.yaml, /etc/cogmem/config.yaml)")
}

// openSession loads config and opens the store, exiting on failure so
// subcommands don't each repeat the same error handling.
func openSession() (*session.Session, *config.Config) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureConfigDir(); err != nil {
		fmt.Fprintf(os.Stderr, "error preparing store directories: %v\n", err)
		os.Exit(1)
	}

	s, err := session.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening store: %v\n", err)
		os.Exit(1)
	}
	return s, cfg
}
