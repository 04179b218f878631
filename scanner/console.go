package scanner

import (
	"fmt"
	"strings"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func logVerbose(format string, args ...interface{}) {
	fmt.Printf("%s[DEBUG]%s "+format+"\n", append([]interface{}{colorBlue, colorReset}, args...)...)
}

// kind headers in display order
var findingSections = []struct {
	title string
	kind  FindingKind
}{
	{"INSTALLED COMPROMISED PACKAGES", KindInstalledInstance},
	{"DEPENDENCY REFERENCES FROM INSTALLED PACKAGES", KindDependencyReference},
	{"PROJECT MANIFEST DECLARATIONS", KindManifestDeclaration},
	{"LOCKFILE ENTRIES", KindLockfileEntry},
}

// PrintReport renders the scan outcome to stdout, grouped by finding kind.
func PrintReport(r *Report) {
	if !r.HasFindings() {
		fmt.Printf("\n%s%s✅ NO COMPROMISED PACKAGES DETECTED%s\n", colorBold, colorGreen, colorReset)
		fmt.Printf("Checked %d blacklisted packages against %s\n", r.BlacklistSize, r.TargetRoot)
		return
	}

	fmt.Printf("\n%s%s⚠️  COMPROMISED PACKAGES DETECTED: %d finding(s)%s\n",
		colorBold, colorRed, r.Summary.TotalIssues, colorReset)
	fmt.Printf("Risk level: %s%s%s%s\n", colorBold, riskColor(r.Summary.RiskLevel),
		strings.ToUpper(string(r.Summary.RiskLevel)), colorReset)

	groups := map[FindingKind][]Finding{
		KindInstalledInstance:   r.InstalledInstances,
		KindDependencyReference: r.DependencyReferences,
		KindManifestDeclaration: r.ManifestDeclarations,
		KindLockfileEntry:       r.LockfileEntries,
	}

	for _, section := range findingSections {
		findings := groups[section.kind]
		if len(findings) == 0 {
			continue
		}
		fmt.Printf("\n%s%s[%s] (%d)%s\n", colorBold, riskColor(kindRisk(section.kind)), section.title, len(findings), colorReset)
		fmt.Println(strings.Repeat("─", 70))
		for _, f := range findings {
			printFinding(f)
		}
	}

	printRemediationSteps()
}

func printFinding(f Finding) {
	fmt.Printf("%s%s@%s%s\n", colorBold, f.Package, f.Version, colorReset)
	if f.Declarer != "" {
		fmt.Printf("  declared by: %s\n", f.Declarer)
	}
	fmt.Printf("  %spath:%s %s\n", colorCyan, colorReset, f.Path)
	if len(f.CompromisedVersions) > 0 {
		fmt.Printf("  %scompromised versions:%s %s\n", colorCyan, colorReset, strings.Join(f.CompromisedVersions, ", "))
	} else {
		fmt.Printf("  %scompromised versions:%s all (no safe version known)\n", colorCyan, colorReset)
	}
	fmt.Println()
}

func kindRisk(kind FindingKind) RiskLevel {
	switch kind {
	case KindInstalledInstance, KindDependencyReference:
		return RiskCritical
	case KindManifestDeclaration:
		return RiskHigh
	default:
		return RiskMedium
	}
}

func riskColor(level RiskLevel) string {
	switch level {
	case RiskCritical:
		return colorRed
	case RiskHigh:
		return colorYellow
	case RiskMedium:
		return colorBlue
	default:
		return colorGreen
	}
}

func printRemediationSteps() {
	fmt.Printf("%s%sRECOMMENDED ACTIONS%s\n", colorBold, colorYellow, colorReset)
	fmt.Println("1. 🔐 Rotate credentials that were available to the affected environment")
	fmt.Println("2. 📦 Remove the compromised versions and reinstall with --ignore-scripts")
	fmt.Println("3. 🔍 Review lockfiles and pin known-safe versions before reinstalling")
	fmt.Println()
	fmt.Printf("%snpm install --ignore-scripts%s  # Per-command\n", colorGreen, colorReset)
	fmt.Printf("%snpm config set ignore-scripts true%s  # Global\n", colorGreen, colorReset)
}
