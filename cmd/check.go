package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tech-takkwatanabe/npm-attack-detect-project/scanner"
)

var checkCmd = &cobra.Command{
	Use:   "check [package@version]",
	Short: "Check if a specific npm package is blacklisted",
	Long: `Check a single package (optionally with a version) against the
compromised-package list.

Examples:
  npm-attack-detect check evil-pkg@1.0.0
  npm-attack-detect check @scope/evil@2.1.0
  npm-attack-detect check evil-pkg`,
	Args: cobra.MaximumNArgs(1),
	Run:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		fmt.Printf("%s[ERROR]%s Please provide a package name to check\n", ColorRed, ColorReset)
		fmt.Println("Example: npm-attack-detect check evil-pkg@1.0.0")
		os.Exit(1)
	}

	pkgName, pkgVersion := splitPackageArg(args[0])

	bl, err := scanner.LoadBlacklistFile(listPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s[ERROR]%s Cannot load blacklist: %v\n", ColorRed, ColorReset, err)
		os.Exit(1)
	}
	fmt.Printf("%s[INFO]%s Loaded %d packages from %s\n\n", ColorGreen, ColorReset, bl.Len(), listPath)

	versions, listed := bl.Lookup(pkgName)
	if !listed {
		fmt.Printf("%s✅ SAFE: %s is NOT in the compromised-package list%s\n", ColorGreen, pkgName, ColorReset)
		return
	}

	switch {
	case pkgVersion == "":
		fmt.Printf("%s%s⚠️  WARNING: %s has compromised versions!%s\n", ColorBold, ColorYellow, pkgName, ColorReset)
		if len(versions) == 0 {
			fmt.Println("\nEvery version of this package is considered compromised.")
			os.Exit(1)
		}
		fmt.Printf("\nCompromised versions:\n")
		for _, v := range versions {
			fmt.Printf("  • %s@%s\n", pkgName, v)
		}
		os.Exit(1)

	case bl.IsCompromised(pkgName, pkgVersion):
		fmt.Printf("%s%s⚠️  COMPROMISED: %s@%s is in the blacklist!%s\n", ColorBold, ColorRed, pkgName, pkgVersion, ColorReset)
		fmt.Println("\nDO NOT install or use this version.")
		os.Exit(1)

	default:
		fmt.Printf("%s✅ SAFE: %s@%s is NOT a known-compromised version%s\n", ColorGreen, pkgName, pkgVersion, ColorReset)
		fmt.Printf("\nHowever, note that %s has compromised versions: %v\n", pkgName, versions)
	}
}

// splitPackageArg parses package@version, keeping scoped names intact
// (the last "@" separates the version).
func splitPackageArg(input string) (name, version string) {
	if idx := strings.LastIndex(input, "@"); idx > 0 {
		return input[:idx], input[idx+1:]
	}
	return input, ""
}
