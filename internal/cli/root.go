// Package cli implements the chatscope command line tool. It runs the
// quantitative half of the pipeline offline, no server or API key needed.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatscope",
	Short: "Analyze chat exports from the command line",
	Long: `Chatscope parses WhatsApp, Telegram, Instagram, and Discord exports and
computes conversation statistics locally.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
