package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "sqllineage",
		Short:        "Extract table level lineage from SQL",
		SilenceUsage: true,
	}
	root.AddCommand(newParseCommand())
	return root
}
