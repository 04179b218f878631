// Package scanner detects known-compromised npm packages installed in a
// project tree by matching package names and versions against a blacklist.
package scanner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

// BlacklistEntry is one record from the compromised-package list. An empty
// Versions slice means every installed version of the package is flagged.
type BlacklistEntry struct {
	Name     string
	Versions []string
}

// Blacklist is the in-memory index of compromised packages, keyed by name.
// Version strings are stored normalized (leading "v" stripped). Immutable
// after load.
type Blacklist struct {
	entries map[string]map[string]bool
}

// NormalizeVersion strips surrounding whitespace and a leading "v" prefix,
// so "v1.2.3" and "1.2.3" compare equal. Idempotent.
func NormalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// LoadBlacklist builds the index from structured entries. Entries with an
// empty name are malformed and fail the load. Duplicate entries for one
// name merge their version sets; a bare entry (no versions) wins outright,
// since "any version is suspect" subsumes any specific version list.
func LoadBlacklist(entries []BlacklistEntry) (*Blacklist, error) {
	b := &Blacklist{entries: make(map[string]map[string]bool, len(entries))}
	anyVersion := make(map[string]bool)
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("blacklist entry %d: empty package name", i)
		}
		name := strings.TrimSpace(e.Name)
		if b.entries[name] == nil {
			b.entries[name] = make(map[string]bool, len(e.Versions))
		}
		if len(e.Versions) == 0 {
			anyVersion[name] = true
		}
		for _, v := range e.Versions {
			if nv := NormalizeVersion(v); nv != "" {
				b.entries[name][nv] = true
			}
		}
	}
	for name := range anyVersion {
		b.entries[name] = make(map[string]bool)
	}
	return b, nil
}

// Lookup returns the normalized compromised versions recorded for name.
// The second return is false when the package is not blacklisted at all.
func (b *Blacklist) Lookup(name string) ([]string, bool) {
	versions, ok := b.entries[name]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, true
}

// IsAnyVersionFlagged reports whether name is blacklisted with no specific
// versions recorded, meaning any installed version is suspect.
func (b *Blacklist) IsAnyVersionFlagged(name string) bool {
	versions, ok := b.entries[name]
	return ok && len(versions) == 0
}

// IsCompromised decides whether an installed (name, version) pair matches
// the blacklist. Comparison is exact string equality on normalized versions;
// no semver range logic is applied, so a version one patch away from a
// listed one is NOT flagged.
func (b *Blacklist) IsCompromised(name, version string) bool {
	versions, ok := b.entries[name]
	if !ok {
		return false
	}
	if len(versions) == 0 {
		return true
	}
	return versions[NormalizeVersion(version)]
}

// Names returns all blacklisted package names, sorted for deterministic
// scan order.
func (b *Blacklist) Names() []string {
	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameSet returns the blacklisted names as a lookup set.
func (b *Blacklist) NameSet() map[string]bool {
	set := make(map[string]bool, len(b.entries))
	for name := range b.entries {
		set[name] = true
	}
	return set
}

// Len returns the number of blacklisted packages.
func (b *Blacklist) Len() int {
	return len(b.entries)
}

// Line format: `name (v1.0.0, v1.0.1)` or a bare `name`.
var blacklistLineRegex = regexp.MustCompile(`^([@A-Za-z0-9._/+~-]+)(?:\s+\(([^)]*)\))?$`)

// ParseBlacklistText reads the line-oriented advisory list format. Empty
// lines, `#` comments and separator lines (runs of `-` or `=`) are skipped.
// Any other line that does not match the format fails the parse.
func ParseBlacklistText(r io.Reader) ([]BlacklistEntry, error) {
	var entries []BlacklistEntry

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || isSeparatorLine(line) {
			continue
		}

		m := blacklistLineRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d: malformed blacklist entry: %q", lineNo, line)
		}

		entry := BlacklistEntry{Name: m[1]}
		if m[2] != "" {
			for _, v := range strings.Split(m[2], ",") {
				if v = strings.TrimSpace(v); v != "" {
					entry.Versions = append(entry.Versions, v)
				}
			}
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read blacklist: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("blacklist contains no entries")
	}
	return entries, nil
}

func isSeparatorLine(line string) bool {
	return strings.Trim(line, "-=") == ""
}

// LoadBlacklistFile reads and indexes a blacklist file in one step.
func LoadBlacklistFile(path string) (*Blacklist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blacklist file: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := ParseBlacklistText(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse blacklist file %s: %w", path, err)
	}
	return LoadBlacklist(entries)
}
