package scanner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LockfileHit records a blacklisted (name, version) pair resolved in a
// lockfile at the target root. Lockfile hits alone classify as Medium risk:
// the package was locked at some point but no installed copy was found.
type LockfileHit struct {
	Name         string
	Version      string
	LockfilePath string
	Source       string
}

// lockfile names searched at the target root.
const (
	npmLockFile  = "package-lock.json"
	pnpmLockFile = "pnpm-lock.yaml"
)

// ScanLockfiles checks the lockfiles present at projectRoot against the
// blacklist. Missing or unparsable lockfiles are skipped.
func ScanLockfiles(projectRoot string, bl *Blacklist, verbose bool) []LockfileHit {
	var hits []LockfileHit
	hits = append(hits, scanNpmLock(filepath.Join(projectRoot, npmLockFile), bl, verbose)...)
	hits = append(hits, scanPnpmLock(filepath.Join(projectRoot, pnpmLockFile), bl, verbose)...)

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Name != hits[j].Name {
			return hits[i].Name < hits[j].Name
		}
		return hits[i].Version < hits[j].Version
	})
	return hits
}

// npmLock covers lockfileVersion 1 (dependencies tree) and 2/3 (flat
// packages map keyed by install path).
type npmLock struct {
	Packages     map[string]npmLockPackage    `json:"packages"`
	Dependencies map[string]npmLockDependency `json:"dependencies"`
}

type npmLockPackage struct {
	Version string `json:"version"`
}

type npmLockDependency struct {
	Version      string                       `json:"version"`
	Dependencies map[string]npmLockDependency `json:"dependencies"`
}

func scanNpmLock(path string, bl *Blacklist, verbose bool) []LockfileHit {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var lock npmLock
	if err := json.Unmarshal(data, &lock); err != nil {
		if verbose {
			logVerbose("skipping unparsable lockfile %s: %v", path, err)
		}
		return nil
	}

	// lockfileVersion 2 files carry both the packages map and the legacy
	// dependencies tree for the same installs; scanning both would double
	// every hit. The dependencies tree is only consulted for v1 files.
	if len(lock.Packages) == 0 {
		return collectV1Dependencies(lock.Dependencies, path, bl)
	}

	var hits []LockfileHit
	for installPath, pkg := range lock.Packages {
		name := packageNameFromLockPath(installPath)
		if name == "" {
			continue
		}
		if bl.IsCompromised(name, pkg.Version) {
			hits = append(hits, LockfileHit{
				Name:         name,
				Version:      pkg.Version,
				LockfilePath: path,
				Source:       npmLockFile,
			})
		}
	}
	return hits
}

// packageNameFromLockPath extracts the package name from a v2/v3 install
// path such as `node_modules/a/node_modules/@scope/b`. The root entry
// (empty key) carries the project itself and is skipped.
func packageNameFromLockPath(installPath string) string {
	if installPath == "" {
		return ""
	}
	marker := nestedInstallDir + "/"
	idx := strings.LastIndex(installPath, marker)
	if idx < 0 {
		return ""
	}
	return installPath[idx+len(marker):]
}

func collectV1Dependencies(deps map[string]npmLockDependency, path string, bl *Blacklist) []LockfileHit {
	var hits []LockfileHit
	for name, dep := range deps {
		if bl.IsCompromised(name, dep.Version) {
			hits = append(hits, LockfileHit{
				Name:         name,
				Version:      dep.Version,
				LockfilePath: path,
				Source:       npmLockFile,
			})
		}
		hits = append(hits, collectV1Dependencies(dep.Dependencies, path, bl)...)
	}
	return hits
}

// pnpmLock only needs the packages map keys, which encode name and version.
type pnpmLock struct {
	Packages map[string]pnpmLockPackage `yaml:"packages"`
}

type pnpmLockPackage struct {
	Version string `yaml:"version"`
}

func scanPnpmLock(path string, bl *Blacklist, verbose bool) []LockfileHit {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var lock pnpmLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		if verbose {
			logVerbose("skipping unparsable lockfile %s: %v", path, err)
		}
		return nil
	}

	var hits []LockfileHit
	for key, pkg := range lock.Packages {
		name, version := parsePnpmPackageKey(key)
		if name == "" {
			continue
		}
		if pkg.Version != "" {
			version = pkg.Version
		}
		if bl.IsCompromised(name, version) {
			hits = append(hits, LockfileHit{
				Name:         name,
				Version:      version,
				LockfilePath: path,
				Source:       pnpmLockFile,
			})
		}
	}
	return hits
}

// parsePnpmPackageKey splits a pnpm-lock packages key into name and
// version. Key shapes across lockfile versions: `/name/1.0.0`,
// `/name@1.0.0`, `name@1.0.0`, with optional peer suffixes in parentheses.
func parsePnpmPackageKey(key string) (name, version string) {
	key = strings.TrimPrefix(key, "/")
	if i := strings.Index(key, "("); i >= 0 {
		key = key[:i]
	}

	// `@` separator: scoped names also start with `@`, so split on the last.
	if i := strings.LastIndex(key, "@"); i > 0 {
		return key[:i], key[i+1:]
	}

	// Old `/name/1.0.0` form: version is the last path segment.
	if i := strings.LastIndex(key, "/"); i > 0 {
		candidate := key[i+1:]
		if candidate != "" && candidate[0] >= '0' && candidate[0] <= '9' {
			return key[:i], candidate
		}
	}
	return "", ""
}
