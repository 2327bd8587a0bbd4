package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "retriever",
	Short: "Retriever coordinates content-retrieval tasks over duplex sessions",
	Long: `Retriever runs the real-time orchestration core: it pairs an extraction
worker with interactive clients over WebSocket sessions, streaming a shared
result table and an agent/user dialogue while tolerating connection loss.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
}
