// Command cogmem is the CLI front end for the cognitive graph memory
// store: it opens a session (internal/session) over a config-located graph
// and log, and exposes ingest, query, quality, maintenance and save as
// subcommands (spec.md §4.M).
package main

func main() {
	Execute()
}
