package scanner

import (
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// DefaultMaxDepth bounds recursion into nested node_modules directories.
const DefaultMaxDepth = 5

// versionUnknown is reported when a package's manifest is missing or
// unparsable; the walk never fails on a single bad manifest.
const versionUnknown = "unknown"

// OriginKind records how an installed package instance was located.
type OriginKind string

const (
	OriginInstalled OriginKind = "installed"
	OriginPnpmStore OriginKind = "pnpm-store"
)

// InstalledPackageRef is one installed copy of a package found during
// traversal. Not persisted beyond the scan.
type InstalledPackageRef struct {
	Name    string
	Version string
	Path    string
	Depth   int
	Origin  OriginKind
}

// Walker traverses an installed-package tree looking for every copy of a
// single target package. A Walker is stateless; traversal state (visited
// set, depth) is owned by one FindInstances call.
type Walker struct {
	maxDepth int
	verbose  bool
}

// NewWalker creates a walker with the given recursion bound. A maxDepth of
// zero or less falls back to DefaultMaxDepth.
func NewWalker(maxDepth int, verbose bool) *Walker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Walker{maxDepth: maxDepth, verbose: verbose}
}

// FindInstances returns every installed copy of targetPackageName under
// root (a node_modules-style directory). A fresh visited-set is created per
// call, so the same real path is never entered twice within one search even
// when symlinks form a cycle.
func (w *Walker) FindInstances(root, targetPackageName string) []InstalledPackageRef {
	visited := make(map[string]bool)
	return w.walk(root, targetPackageName, 0, visited)
}

func (w *Walker) walk(dir, target string, depth int, visited map[string]bool) []InstalledPackageRef {
	if depth > w.maxDepth {
		return nil
	}

	// Cycle guard: key on the symlink-resolved path. EvalSymlinks also
	// fails for missing directories, which ends this branch quietly.
	realPath, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil
	}
	if visited[realPath] {
		if w.verbose {
			logVerbose("skipping already-visited path: %s", dir)
		}
		return nil
	}
	visited[realPath] = true

	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		if w.verbose {
			logVerbose("skipping unreadable directory %s: %v", dir, err)
		}
		return nil
	}

	var refs []InstalledPackageRef
	for _, de := range dirents {
		name := de.Name()
		full := filepath.Join(dir, name)
		if !isDirLike(de, full) {
			continue
		}

		switch Classify(name) {
		case EntryContentStore:
			refs = append(refs, w.matchStore(full, target, depth)...)
		case EntryScope:
			refs = append(refs, w.walkScope(full, name, target, depth, visited)...)
		default:
			if name == target {
				refs = append(refs, packageRefAt(full, target, depth, OriginInstalled))
			}
			// A different nested copy may exist regardless of a match here.
			refs = append(refs, w.walk(filepath.Join(full, nestedInstallDir), target, depth+1, visited)...)
		}
	}
	return refs
}

// walkScope enumerates the children of a scope directory, emitting a match
// when `scope/child` equals the target and recursing into every child's
// nested install directory.
func (w *Walker) walkScope(scopeDir, scopeName, target string, depth int, visited map[string]bool) []InstalledPackageRef {
	dirents, err := godirwalk.ReadDirents(scopeDir, nil)
	if err != nil {
		return nil
	}

	var refs []InstalledPackageRef
	for _, de := range dirents {
		childPath := filepath.Join(scopeDir, de.Name())
		if !isDirLike(de, childPath) {
			continue
		}
		if scopeName+"/"+de.Name() == target {
			refs = append(refs, packageRefAt(childPath, target, depth, OriginInstalled))
		}
		refs = append(refs, w.walk(filepath.Join(childPath, nestedInstallDir), target, depth+1, visited)...)
	}
	return refs
}

// matchStore applies the pnpm-store direct-match optimization: store entry
// names already encode `name@version`, so a prefix match against the
// target's store key finds every installed version without recursing into
// every package's store directory.
func (w *Walker) matchStore(storeDir, target string, depth int) []InstalledPackageRef {
	dirents, err := godirwalk.ReadDirents(storeDir, nil)
	if err != nil {
		return nil
	}

	prefix := storeKeyPrefix(target)
	var refs []InstalledPackageRef
	for _, de := range dirents {
		name := de.Name()
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		entryPath := filepath.Join(storeDir, name)
		if !isDirLike(de, entryPath) {
			continue
		}

		// The real package contents live at <entry>/node_modules/<target>.
		ref := InstalledPackageRef{
			Name:    target,
			Version: storeKeyVersion(name, prefix),
			Path:    entryPath,
			Depth:   depth,
			Origin:  OriginPnpmStore,
		}
		pkgDir := filepath.Join(entryPath, nestedInstallDir, filepath.FromSlash(target))
		if info, err := os.Stat(pkgDir); err == nil && info.IsDir() {
			ref.Path = pkgDir
			if v := readManifestVersion(pkgDir); v != versionUnknown {
				ref.Version = v
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

// packageRefAt builds a ref for a matched package directory, reading the
// declared version from its manifest.
func packageRefAt(dir, name string, depth int, origin OriginKind) InstalledPackageRef {
	return InstalledPackageRef{
		Name:    name,
		Version: readManifestVersion(dir),
		Path:    dir,
		Depth:   depth,
		Origin:  origin,
	}
}

// isDirLike reports whether a dirent is a directory or a symlink that
// resolves to one. Plain files and dangling symlinks are ignored.
func isDirLike(de *godirwalk.Dirent, path string) bool {
	if de.IsDir() {
		return true
	}
	if !de.IsSymlink() {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
