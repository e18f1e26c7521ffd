package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by relevance",
		Long:  "Score every stored memory against the query and print the best matches.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (default from config)")

	rootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	client := newClient()
	defer client.Close()

	hits, err := client.Search(cmd.Context(), query, limit)
	if err != nil {
		exitErr("search", err)
	}

	if jsonOut {
		printJSON(hits)
		return
	}

	if len(hits) == 0 {
		fmt.Println("No memories found.")
		return
	}

	fmt.Printf("Found %d memories:\n", len(hits))
	for i, hit := range hits {
		tags := ""
		if len(hit.Record.Tags) > 0 {
			tags = " [" + strings.Join(hit.Record.Tags, ",") + "]"
		}
		fmt.Printf("%d. (%s)%s %s (score %.1f)\n", i+1, hit.Record.ID, tags, hit.Record.Text, hit.Score)
	}
}
