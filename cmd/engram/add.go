package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Store a memory",
		Long:  "Store a memory. Text can be a positional arg or piped via stdin.",
		Run:   runAdd,
	}

	cmd.Flags().StringSliceP("tags", "t", nil, "Tags for the memory")

	rootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	tags, _ := cmd.Flags().GetStringSlice("tags")

	// Get text: positional args first, then check stdin
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			text = string(b)
		}
	}

	if strings.TrimSpace(text) == "" {
		exitErr("add", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	client := newClient()
	defer client.Close()

	record, err := client.Add(cmd.Context(), text, tags)
	if err != nil {
		exitErr("add", err)
	}

	if jsonOut {
		printJSON(record)
		return
	}

	fmt.Println("Stored memory with ID:", record.ID)
}
