package scanner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/karrick/godirwalk"
)

// manifestFile is the dependency manifest present in every npm package.
const manifestFile = "package.json"

// PackageJSON is the subset of package.json consumed by the scan.
type PackageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// AllDependencies unions every recognized dependency group into one
// name -> declared-range mapping.
func (p *PackageJSON) AllDependencies() map[string]string {
	all := make(map[string]string)
	for _, group := range []map[string]string{
		p.Dependencies, p.DevDependencies, p.PeerDependencies, p.OptionalDependencies,
	} {
		for name, rng := range group {
			all[name] = rng
		}
	}
	return all
}

// DependencyReference records an installed package whose manifest declares
// a blacklisted package in one of its dependency groups.
type DependencyReference struct {
	DeclaringName string
	DeclaringPath string
	Name          string
	DeclaredRange string
	Depth         int
}

// ManifestDeclaration records a blacklisted name declared in the project's
// own manifest (not necessarily installed).
type ManifestDeclaration struct {
	Name          string
	DeclaredRange string
	ManifestPath  string
}

// readManifest parses dir/package.json. Any read or parse failure is
// returned to the caller, which decides whether to skip or log.
func readManifest(dir string) (*PackageJSON, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// readManifestVersion returns the declared version of the package at dir,
// or "unknown" when the manifest is missing or unparsable.
func readManifestVersion(dir string) string {
	pkg, err := readManifest(dir)
	if err != nil || pkg.Version == "" {
		return versionUnknown
	}
	return pkg.Version
}

// ManifestScanner walks an installed tree inspecting every package manifest
// for declared dependencies on blacklisted names. Declared ranges are not
// resolved versions, so the match is name-only.
type ManifestScanner struct {
	maxDepth int
	verbose  bool
}

// NewManifestScanner creates a manifest scanner with the given depth bound.
func NewManifestScanner(maxDepth int, verbose bool) *ManifestScanner {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &ManifestScanner{maxDepth: maxDepth, verbose: verbose}
}

// ScanTree traverses root with the same shape as the tree walker (scope /
// content-store / regular dispatch, cycle guard, depth bound) and emits a
// DependencyReference for every blacklisted name declared by a manifest.
func (m *ManifestScanner) ScanTree(root string, blacklistNames map[string]bool) []DependencyReference {
	visited := make(map[string]bool)
	return m.scan(root, blacklistNames, 0, visited)
}

func (m *ManifestScanner) scan(dir string, names map[string]bool, depth int, visited map[string]bool) []DependencyReference {
	if depth > m.maxDepth {
		return nil
	}
	realPath, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil
	}
	if visited[realPath] {
		return nil
	}
	visited[realPath] = true

	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		if m.verbose {
			logVerbose("skipping unreadable directory %s: %v", dir, err)
		}
		return nil
	}

	var refs []DependencyReference
	for _, de := range dirents {
		entryPath := filepath.Join(dir, de.Name())
		if !isDirLike(de, entryPath) {
			continue
		}

		switch Classify(de.Name()) {
		case EntryContentStore:
			// No single target here, so the direct-match shortcut does not
			// apply; descend into each store entry's install directory.
			refs = append(refs, m.scanStore(entryPath, names, depth, visited)...)
		case EntryScope:
			refs = append(refs, m.scanScope(entryPath, names, depth, visited)...)
		default:
			refs = append(refs, m.scanPackageDir(entryPath, names, depth)...)
			refs = append(refs, m.scan(filepath.Join(entryPath, nestedInstallDir), names, depth+1, visited)...)
		}
	}
	return refs
}

func (m *ManifestScanner) scanScope(scopeDir string, names map[string]bool, depth int, visited map[string]bool) []DependencyReference {
	dirents, err := godirwalk.ReadDirents(scopeDir, nil)
	if err != nil {
		return nil
	}

	var refs []DependencyReference
	for _, de := range dirents {
		childPath := filepath.Join(scopeDir, de.Name())
		if !isDirLike(de, childPath) {
			continue
		}
		refs = append(refs, m.scanPackageDir(childPath, names, depth)...)
		refs = append(refs, m.scan(filepath.Join(childPath, nestedInstallDir), names, depth+1, visited)...)
	}
	return refs
}

func (m *ManifestScanner) scanStore(storeDir string, names map[string]bool, depth int, visited map[string]bool) []DependencyReference {
	dirents, err := godirwalk.ReadDirents(storeDir, nil)
	if err != nil {
		return nil
	}

	var refs []DependencyReference
	for _, de := range dirents {
		entryPath := filepath.Join(storeDir, de.Name())
		if !isDirLike(de, entryPath) {
			continue
		}
		refs = append(refs, m.scan(filepath.Join(entryPath, nestedInstallDir), names, depth+1, visited)...)
	}
	return refs
}

// scanPackageDir inspects a single package's manifest. Malformed manifests
// are skipped, never fatal.
func (m *ManifestScanner) scanPackageDir(dir string, names map[string]bool, depth int) []DependencyReference {
	pkg, err := readManifest(dir)
	if err != nil {
		if m.verbose && !os.IsNotExist(err) {
			logVerbose("skipping unparsable manifest in %s: %v", dir, err)
		}
		return nil
	}

	declaring := pkg.Name
	if declaring == "" {
		declaring = filepath.Base(dir)
	}

	all := pkg.AllDependencies()
	matched := make([]string, 0)
	for name := range all {
		if names[name] {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)

	refs := make([]DependencyReference, 0, len(matched))
	for _, name := range matched {
		refs = append(refs, DependencyReference{
			DeclaringName: declaring,
			DeclaringPath: dir,
			Name:          name,
			DeclaredRange: all[name],
			Depth:         depth,
		})
	}
	return refs
}

// ScanProjectManifest checks the project's own manifest for declared
// blacklisted names. A missing or unparsable project manifest yields no
// declarations (the installed tree is still scanned).
func ScanProjectManifest(projectRoot string, blacklistNames map[string]bool) []ManifestDeclaration {
	pkg, err := readManifest(projectRoot)
	if err != nil {
		return nil
	}

	all := pkg.AllDependencies()
	matched := make([]string, 0)
	for name := range all {
		if blacklistNames[name] {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)

	decls := make([]ManifestDeclaration, 0, len(matched))
	for _, name := range matched {
		decls = append(decls, ManifestDeclaration{
			Name:          name,
			DeclaredRange: all[name],
			ManifestPath:  filepath.Join(projectRoot, manifestFile),
		})
	}
	return decls
}
