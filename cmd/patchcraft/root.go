// patchcraft splits an image into rich and poor texture regions and runs error
// level analysis on each.
//
// Usage:
//
//	patchcraft analyze <image-path-or-url> -o <dir> [--quality=90] [--percentile=70] [--patch-size=8]
//	patchcraft version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "patchcraft",
	Short: "Texture segmentation and error level analysis for image forensics",
	Long: "patchcraft scores local texture with uniform LBP, splits the image at a richness\n" +
		"percentile and writes masks, isolated regions and ELA images for both regions.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the patchcraft version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "patchcraft %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
