package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FindingKind identifies where a blacklisted package was detected.
type FindingKind string

const (
	KindInstalledInstance   FindingKind = "installed_instance"
	KindDependencyReference FindingKind = "dependency_reference"
	KindManifestDeclaration FindingKind = "manifest_declaration"
	KindLockfileEntry       FindingKind = "lockfile_entry"
)

// RiskLevel is the coarse severity of a whole scan, derived from where
// compromised packages were found.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Finding is the aggregated, reportable unit of the scan.
type Finding struct {
	Package             string      `json:"package"`
	Version             string      `json:"version"`
	Path                string      `json:"path"`
	Kind                FindingKind `json:"kind"`
	Declarer            string      `json:"declared_by,omitempty"`
	CompromisedVersions []string    `json:"compromised_versions,omitempty"`
}

// Summary is the computed outcome of a scan.
type Summary struct {
	Safe        bool      `json:"safe"`
	TotalIssues int       `json:"total_issues"`
	RiskLevel   RiskLevel `json:"risk_level"`
}

// Report is the terminal output of one run, written once and never mutated
// after summary computation.
type Report struct {
	Timestamp            string    `json:"timestamp"`
	TargetRoot           string    `json:"target_root"`
	BlacklistSize        int       `json:"blacklist_size"`
	InstalledInstances   []Finding `json:"installed_instances"`
	DependencyReferences []Finding `json:"dependency_references"`
	ManifestDeclarations []Finding `json:"manifest_declarations"`
	LockfileEntries      []Finding `json:"lockfile_entries"`
	Summary              Summary   `json:"summary"`
}

// Aggregate collects raw scan results into a report. Installed-instance
// findings are deduplicated by (package, path); risk level follows strict
// precedence: installed or dependency-reference findings are Critical,
// project-manifest declarations High, lockfile-only hits Medium.
func Aggregate(targetRoot string, bl *Blacklist, installed []InstalledPackageRef, depRefs []DependencyReference, decls []ManifestDeclaration, lockHits []LockfileHit) *Report {
	r := &Report{
		Timestamp:            time.Now().Format(time.RFC3339),
		TargetRoot:           targetRoot,
		BlacklistSize:        bl.Len(),
		InstalledInstances:   make([]Finding, 0, len(installed)),
		DependencyReferences: make([]Finding, 0, len(depRefs)),
		ManifestDeclarations: make([]Finding, 0, len(decls)),
		LockfileEntries:      make([]Finding, 0, len(lockHits)),
	}

	seen := make(map[string]bool, len(installed))
	for _, ref := range installed {
		key := ref.Name + "|" + ref.Path
		if seen[key] {
			continue
		}
		seen[key] = true
		r.InstalledInstances = append(r.InstalledInstances, Finding{
			Package:             ref.Name,
			Version:             ref.Version,
			Path:                ref.Path,
			Kind:                KindInstalledInstance,
			CompromisedVersions: compromisedVersions(bl, ref.Name),
		})
	}

	for _, ref := range depRefs {
		r.DependencyReferences = append(r.DependencyReferences, Finding{
			Package:             ref.Name,
			Version:             ref.DeclaredRange,
			Path:                ref.DeclaringPath,
			Kind:                KindDependencyReference,
			Declarer:            ref.DeclaringName,
			CompromisedVersions: compromisedVersions(bl, ref.Name),
		})
	}

	for _, d := range decls {
		r.ManifestDeclarations = append(r.ManifestDeclarations, Finding{
			Package:             d.Name,
			Version:             d.DeclaredRange,
			Path:                d.ManifestPath,
			Kind:                KindManifestDeclaration,
			CompromisedVersions: compromisedVersions(bl, d.Name),
		})
	}

	for _, h := range lockHits {
		r.LockfileEntries = append(r.LockfileEntries, Finding{
			Package:             h.Name,
			Version:             h.Version,
			Path:                h.LockfilePath,
			Kind:                KindLockfileEntry,
			CompromisedVersions: compromisedVersions(bl, h.Name),
		})
	}

	sortFindings(r.InstalledInstances)
	sortFindings(r.DependencyReferences)
	sortFindings(r.ManifestDeclarations)
	sortFindings(r.LockfileEntries)

	total := len(r.InstalledInstances) + len(r.DependencyReferences) +
		len(r.ManifestDeclarations) + len(r.LockfileEntries)
	r.Summary = Summary{
		Safe:        total == 0,
		TotalIssues: total,
		RiskLevel:   r.riskLevel(),
	}
	return r
}

func (r *Report) riskLevel() RiskLevel {
	switch {
	case len(r.InstalledInstances) > 0 || len(r.DependencyReferences) > 0:
		return RiskCritical
	case len(r.ManifestDeclarations) > 0:
		return RiskHigh
	case len(r.LockfileEntries) > 0:
		return RiskMedium
	default:
		return RiskNone
	}
}

func compromisedVersions(bl *Blacklist, name string) []string {
	versions, _ := bl.Lookup(name)
	return versions
}

func sortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Package != findings[j].Package {
			return findings[i].Package < findings[j].Package
		}
		return findings[i].Path < findings[j].Path
	})
}

// HasFindings reports whether the scan detected anything.
func (r *Report) HasFindings() bool {
	return r.Summary.TotalIssues > 0
}

// Write stores the report as a timestamped JSON document under outDir and
// returns the written path. Write-once; there is no append protocol.
func (r *Report) Write(outDir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	name := fmt.Sprintf("npm-attack-report-%s.json", time.Now().Format("20060102-150405"))
	path := filepath.Join(outDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
