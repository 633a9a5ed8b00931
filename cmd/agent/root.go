package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pageguard-agent",
	Short: "Watch a page for suspicious content and submit it for scanning",
	Long: "pageguard-agent drives a headless browser against one page, extracts\n" +
		"candidate images and popups as the page mutates, submits them to the\n" +
		"scan API under a local dispatch ceiling, and renders verdicts back\n" +
		"onto the page.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
