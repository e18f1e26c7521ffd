package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the whole collection",
		Long:  "Write the canonical serialized collection, tombstones included, to stdout or a file.",
		Run:   runExport,
	}

	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")

	rootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")

	client := newClient()
	defer client.Close()

	data, err := client.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	if output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			exitErr("write export", err)
		}
		fmt.Println("Exported to:", output)
		return
	}

	os.Stdout.Write(data)
}
