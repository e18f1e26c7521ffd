package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Soft-delete a memory",
		Long:  "Tombstone a memory by id. The record stays in the store file but leaves search results.",
		Args:  cobra.ExactArgs(1),
		Run:   runDelete,
	}

	rootCmd.AddCommand(cmd)
}

func runDelete(cmd *cobra.Command, args []string) {
	client := newClient()
	defer client.Close()

	result, err := client.Delete(cmd.Context(), args[0])
	if err != nil {
		exitErr("delete", err)
	}

	if jsonOut {
		printJSON(result)
		return
	}

	if !result.Found {
		fmt.Println("No memory with ID:", args[0])
		return
	}
	fmt.Println("Deleted memory with ID:", args[0])
}
