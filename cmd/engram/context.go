package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [task]",
		Short: "Assemble a budgeted context block",
		Long:  "Search and score memories for a task, then pack the best into a character budget.",
		Run:   runContext,
	}

	cmd.Flags().IntP("budget", "b", 0, "Max characters in the block (default from config)")
	cmd.Flags().IntP("limit", "l", 0, "Max memories considered (default from config)")

	rootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	budget, _ := cmd.Flags().GetInt("budget")
	limit, _ := cmd.Flags().GetInt("limit")
	task := strings.Join(args, " ")

	client := newClient()
	defer client.Close()

	result, err := client.Compress(cmd.Context(), task, budget, limit)
	if err != nil {
		exitErr("context", err)
	}

	if jsonOut {
		printJSON(result)
		return
	}

	fmt.Print(result.Text)
	if result.Note != "" {
		fmt.Fprintln(os.Stderr, "note:", result.Note)
	}
}
