package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities and their gallery sizes",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	engine, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer engine.Close()

	identities, err := engine.Identities(cmd.Context())
	if err != nil {
		return err
	}
	if len(identities) == 0 {
		fmt.Println("No identities enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tSAMPLES\tENROLLED\tUPDATED")
	fmt.Fprintln(w, "--------\t-------\t--------\t-------")
	for _, identity := range identities {
		gallery, err := engine.Gallery(cmd.Context(), identity)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			identity,
			len(gallery.Samples),
			gallery.EnrolledAt.Local().Format("2006-01-02 15:04"),
			gallery.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d\n", len(identities))
	return nil
}
