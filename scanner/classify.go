package scanner

import "strings"

// EntryKind classifies a directory entry inside an installed-package tree.
type EntryKind int

const (
	// EntryRegular is an ordinary package directory.
	EntryRegular EntryKind = iota
	// EntryScope is an npm scope directory (`@scope`); its children are the
	// actual scoped package directories, combined as `@scope/child`.
	EntryScope
	// EntryContentStore is the pnpm virtual store (`.pnpm`), which keys
	// installations by `name@version` directory names instead of nesting.
	EntryContentStore
)

// pnpmStoreDir is the content-addressed store used by pnpm layouts.
const pnpmStoreDir = ".pnpm"

// nestedInstallDir is the conventional nested install directory name.
const nestedInstallDir = "node_modules"

// Classify determines how a directory entry should be traversed.
func Classify(entryName string) EntryKind {
	switch {
	case entryName == pnpmStoreDir:
		return EntryContentStore
	case strings.HasPrefix(entryName, "@"):
		return EntryScope
	default:
		return EntryRegular
	}
}

// storeKeyPrefix returns the pnpm store directory-name prefix for a package.
// Store entries encode `name@version` with `/` replaced by `+`, e.g.
// `@scope/pkg` version 1.0.0 installs under `@scope+pkg@1.0.0`.
func storeKeyPrefix(packageName string) string {
	return strings.ReplaceAll(packageName, "/", "+") + "@"
}

// storeKeyVersion extracts the version encoded in a store entry name, given
// the matched prefix. Peer-dependency suffixes like `(react@18.2.0)` and
// legacy `_hash` suffixes are trimmed.
func storeKeyVersion(entryName, prefix string) string {
	v := strings.TrimPrefix(entryName, prefix)
	if i := strings.IndexAny(v, "(_"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return versionUnknown
	}
	return v
}
