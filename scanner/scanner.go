package scanner

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config carries all scan settings. It replaces process-wide state: every
// knob is passed explicitly into the scanner's entry point.
type Config struct {
	// BlacklistPath is the compromised-package list file.
	BlacklistPath string
	// OutputDir receives the timestamped JSON report.
	OutputDir string
	// MaxDepth bounds nested node_modules recursion (default 5).
	MaxDepth int
	// Verbose enables per-node skip logging.
	Verbose bool
	// OnPackage, when set, is called before each blacklisted package is
	// searched for; used for progress display.
	OnPackage func(name string)
}

// Scanner runs the full point-in-time audit of one target tree.
type Scanner struct {
	cfg       Config
	blacklist *Blacklist
}

// New loads the blacklist and prepares a scanner. A missing or unparsable
// blacklist file is fatal: no partial scan is attempted.
func New(cfg Config) (*Scanner, error) {
	bl, err := LoadBlacklistFile(cfg.BlacklistPath)
	if err != nil {
		return nil, err
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return &Scanner{cfg: cfg, blacklist: bl}, nil
}

// Blacklist exposes the loaded index, mainly for the check command.
func (s *Scanner) Blacklist() *Blacklist {
	return s.blacklist
}

// WriteReport stores the report under the configured output directory and
// returns the written path.
func (s *Scanner) WriteReport(r *Report) (string, error) {
	return r.Write(s.cfg.OutputDir)
}

// Run scans target and returns the aggregated report. The scan is
// single-threaded and depth-first: each blacklist entry is searched against
// the full tree sequentially, with a fresh visited-set per entry.
// Individual unreadable directories or manifests are skipped; only a
// missing or non-directory target is fatal.
func (s *Scanner) Run(target string) (*Report, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("target directory does not exist: %s", target)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("target is not a directory: %s", target)
	}

	installRoot := filepath.Join(target, nestedInstallDir)
	walker := NewWalker(s.cfg.MaxDepth, s.cfg.Verbose)

	var installed []InstalledPackageRef
	for _, name := range s.blacklist.Names() {
		if s.cfg.OnPackage != nil {
			s.cfg.OnPackage(name)
		}
		for _, ref := range walker.FindInstances(installRoot, name) {
			if s.blacklist.IsCompromised(ref.Name, ref.Version) {
				installed = append(installed, ref)
			}
		}
	}

	names := s.blacklist.NameSet()
	manifests := NewManifestScanner(s.cfg.MaxDepth, s.cfg.Verbose)
	depRefs := manifests.ScanTree(installRoot, names)
	decls := ScanProjectManifest(target, names)
	lockHits := ScanLockfiles(target, s.blacklist, s.cfg.Verbose)

	return Aggregate(target, s.blacklist, installed, depRefs, decls, lockHits), nil
}
