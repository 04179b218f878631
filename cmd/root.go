package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	listPath  string
	outputDir string
	maxDepth  int
	verbose   bool

	// Version info
	Version   = "1.0.0"
	BuildDate = "2026-08-23"
)

// ANSI colors
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

var rootCmd = &cobra.Command{
	Use:   "npm-attack-detect",
	Short: "🔍 npm compromised-package detector",
	Long: fmt.Sprintf(`%s%snpm-attack-detect%s - point-in-time audit of installed npm packages

Walks a project's installed dependency tree (npm, pnpm and scoped layouts)
and matches every package name and version against a local blacklist of
known-compromised releases. Also inspects manifests and lockfiles for
declared references to blacklisted packages.

Detection surfaces:
  • Installed copies in node_modules, including nested and symlinked trees
  • pnpm content-store installations (.pnpm/name@version layout)
  • Dependency declarations in installed package manifests
  • The project's own package.json dependency groups
  • package-lock.json and pnpm-lock.yaml resolved entries

Example usage:
  npm-attack-detect scan                      # Scan current directory
  npm-attack-detect scan /path/to/project     # Scan specific project
  npm-attack-detect scan -l blacklist.txt     # Use a custom blacklist
  npm-attack-detect check evil-pkg@1.0.0      # Check one package@version
`, ColorBold, ColorCyan, ColorReset),
	Version: Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&listPath, "list", "l", "compromised-packages.txt", "Path to the compromised-package list")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", ".", "Directory for the JSON report")
	rootCmd.PersistentFlags().IntVarP(&maxDepth, "max-depth", "d", 5, "Maximum nested node_modules recursion depth")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}
