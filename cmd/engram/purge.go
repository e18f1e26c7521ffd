package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engramkit/engram/pkg/mem"
)

func init() {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove memories",
		Long:  "Hard-delete memories matching exactly one of --id, --tag, or --contains. Irreversible.",
		Run:   runPurge,
	}

	cmd.Flags().String("id", "", "Match a single memory by id")
	cmd.Flags().String("tag", "", "Match memories carrying the tag")
	cmd.Flags().String("contains", "", "Match memories whose text contains the substring")
	cmd.Flags().Bool("dry-run", false, "Report matches without removing anything")

	rootCmd.AddCommand(cmd)
}

func runPurge(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	tag, _ := cmd.Flags().GetString("tag")
	contains, _ := cmd.Flags().GetString("contains")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	client := newClient()
	defer client.Close()

	result, err := client.Purge(cmd.Context(), mem.PurgeCriteria{
		ID:        id,
		Tag:       tag,
		Substring: contains,
	}, dryRun)
	if err != nil {
		exitErr("purge", err)
	}

	if jsonOut {
		printJSON(result)
		return
	}

	if result.DryRun {
		fmt.Printf("Would remove %d memories:\n", result.Count)
	} else {
		fmt.Printf("Removed %d memories:\n", result.Count)
	}
	for _, matched := range result.IDs {
		fmt.Println("  " + matched)
	}
}
