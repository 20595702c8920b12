package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "salience",
	Short: "Conversation-aware memory relevance for AI coding agents",
	Long:  "Salience watches a conversation for topic shifts and injects the most relevant memories from a remote memory store. Single Go binary: one daemon, thin hook handlers.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(analyzeCmd)
}
