package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	retriever "github.com/jshinodea/content-retriever"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of retriever",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("retriever version %s\n", strings.TrimSpace(retriever.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
