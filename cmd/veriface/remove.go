package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <identity>",
	Short: "Remove an identity's gallery",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	identity := args[0]

	engine, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Remove(cmd.Context(), identity); err != nil {
		return err
	}

	fmt.Printf("Gallery for '%s' has been removed.\n", identity)
	return nil
}
