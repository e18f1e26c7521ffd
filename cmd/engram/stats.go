package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Run:   runStats,
	}

	rootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	client := newClient()
	defer client.Close()

	stats, err := client.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	if jsonOut {
		printJSON(stats)
		return
	}

	fmt.Println("Store:", client.StorePath())
	fmt.Printf("Total: %d (%d active, %d deleted)\n", stats.Total, stats.Active, stats.Deleted)

	if len(stats.Tags) > 0 {
		tags := make([]string, 0, len(stats.Tags))
		for tag := range stats.Tags {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		fmt.Println("Tags:")
		for _, tag := range tags {
			fmt.Printf("  %s: %d\n", tag, stats.Tags[tag])
		}
	}
}
