package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/tech-takkwatanabe/npm-attack-detect-project/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan [targetDirectory]",
	Short: "Scan a project tree for compromised npm packages",
	Long: `Scan an installed-package tree against the compromised-package list.

Every blacklisted package is searched for across node_modules, including
nested installs, scoped packages and pnpm content-store layouts. Manifests
and lockfiles are checked for declared references as well.

Exit codes:
  0  no findings
  1  findings detected, or the target/blacklist could not be read

Examples:
  npm-attack-detect scan
  npm-attack-detect scan /path/to/project
  npm-attack-detect scan -l blacklist.txt -o reports/`,
	Args: cobra.MaximumNArgs(1),
	Run:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	prog := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	prog.Suffix = " scanning..."

	s, err := scanner.New(scanner.Config{
		BlacklistPath: listPath,
		OutputDir:     outputDir,
		MaxDepth:      maxDepth,
		Verbose:       verbose,
		OnPackage: func(name string) {
			prog.Suffix = fmt.Sprintf(" checking %s", name)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s[ERROR]%s Cannot load blacklist: %v\n", ColorRed, ColorReset, err)
		os.Exit(1)
	}

	fmt.Printf("%s[INFO]%s Scanning %s against %d blacklisted packages\n",
		ColorBlue, ColorReset, target, s.Blacklist().Len())
	report, err := runWithProgress(s, target, prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s[ERROR]%s Scan aborted: %v\n", ColorRed, ColorReset, err)
		os.Exit(1)
	}

	scanner.PrintReport(report)

	reportPath, err := s.WriteReport(report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s[ERROR]%s Failed to write report: %v\n", ColorRed, ColorReset, err)
		os.Exit(1)
	}
	fmt.Printf("\n%s[INFO]%s Report written to: %s\n", ColorBlue, ColorReset, reportPath)

	if report.HasFindings() {
		os.Exit(1)
	}
}

// runWithProgress drives the spinner while the synchronous scan runs; the
// scan itself stays single-threaded.
func runWithProgress(s *scanner.Scanner, target string, prog *spinner.Spinner) (*scanner.Report, error) {
	prog.Start()
	defer prog.Stop()
	return s.Run(target)
}
