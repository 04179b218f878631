package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

// writeManifest writes an arbitrary package.json body into dir.
func writeManifest(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanTreeDependencyGroups(t *testing.T) {
	nm := filepath.Join(t.TempDir(), "node_modules")
	writeManifest(t, filepath.Join(nm, "app-helper"), `{
		"name": "app-helper",
		"version": "1.0.0",
		"dependencies": {"evil-pkg": "^1.0.0", "harmless": "2.x"},
		"devDependencies": {"evil-dev": "~3.0.0"},
		"peerDependencies": {"evil-peer": ">=1"},
		"optionalDependencies": {"evil-opt": "*"}
	}`)

	names := map[string]bool{"evil-pkg": true, "evil-dev": true, "evil-peer": true, "evil-opt": true}
	refs := NewManifestScanner(0, false).ScanTree(nm, names)
	if len(refs) != 4 {
		t.Fatalf("got %d refs, want 4 (one per dependency group)", len(refs))
	}

	byName := map[string]DependencyReference{}
	for _, ref := range refs {
		byName[ref.Name] = ref
		if ref.DeclaringName != "app-helper" {
			t.Errorf("DeclaringName = %q, want app-helper", ref.DeclaringName)
		}
	}
	if byName["evil-pkg"].DeclaredRange != "^1.0.0" {
		t.Errorf("evil-pkg range = %q, want ^1.0.0", byName["evil-pkg"].DeclaredRange)
	}
	if byName["evil-dev"].DeclaredRange != "~3.0.0" {
		t.Errorf("evil-dev range = %q, want ~3.0.0", byName["evil-dev"].DeclaredRange)
	}
}

func TestScanTreeNested(t *testing.T) {
	nm := filepath.Join(t.TempDir(), "node_modules")
	writeManifest(t, filepath.Join(nm, "outer", "node_modules", "inner"), `{
		"name": "inner",
		"dependencies": {"evil-pkg": "1.0.0"}
	}`)

	refs := NewManifestScanner(0, false).ScanTree(nm, map[string]bool{"evil-pkg": true})
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if refs[0].Depth != 1 {
		t.Errorf("Depth = %d, want 1", refs[0].Depth)
	}
}

func TestScanTreeScoped(t *testing.T) {
	nm := filepath.Join(t.TempDir(), "node_modules")
	writeManifest(t, filepath.Join(nm, "@scope", "helper"), `{
		"name": "@scope/helper",
		"dependencies": {"evil-pkg": "^1.0.0"}
	}`)

	refs := NewManifestScanner(0, false).ScanTree(nm, map[string]bool{"evil-pkg": true})
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if refs[0].DeclaringName != "@scope/helper" {
		t.Errorf("DeclaringName = %q, want @scope/helper", refs[0].DeclaringName)
	}
}

func TestScanTreeSkipsMalformedManifest(t *testing.T) {
	nm := filepath.Join(t.TempDir(), "node_modules")
	writeManifest(t, filepath.Join(nm, "broken"), `{malformed`)
	writeManifest(t, filepath.Join(nm, "fine"), `{
		"name": "fine",
		"dependencies": {"evil-pkg": "1.0.0"}
	}`)

	refs := NewManifestScanner(0, false).ScanTree(nm, map[string]bool{"evil-pkg": true})
	if len(refs) != 1 {
		t.Errorf("got %d refs, want 1 (malformed manifest skipped)", len(refs))
	}
}

func TestScanTreeContentStore(t *testing.T) {
	nm := filepath.Join(t.TempDir(), "node_modules")
	writeManifest(t, filepath.Join(nm, ".pnpm", "dep-user@1.0.0", "node_modules", "dep-user"), `{
		"name": "dep-user",
		"dependencies": {"evil-pkg": "^1.0.0"}
	}`)

	refs := NewManifestScanner(0, false).ScanTree(nm, map[string]bool{"evil-pkg": true})
	if len(refs) != 1 {
		t.Errorf("got %d refs, want 1 (store entry manifests inspected)", len(refs))
	}
}

func TestScanTreeSymlinkCycle(t *testing.T) {
	base := t.TempDir()
	dirA := filepath.Join(base, "real-a")
	dirB := filepath.Join(base, "real-b")
	if err := os.MkdirAll(filepath.Join(dirA, "node_modules"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dirB, "node_modules"), 0755); err != nil {
		t.Fatal(err)
	}

	nm := filepath.Join(base, "node_modules")
	if err := os.MkdirAll(nm, 0755); err != nil {
		t.Fatal(err)
	}

	// pkg-a -> real-a, real-a/node_modules/pkg-b -> real-b,
	// real-b/node_modules/pkg-a -> real-a
	if err := os.Symlink(dirA, filepath.Join(nm, "pkg-a")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(dirB, filepath.Join(dirA, "node_modules", "pkg-b")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(dirA, filepath.Join(dirB, "node_modules", "pkg-a")); err != nil {
		t.Fatal(err)
	}

	// A generous depth bound proves the visited-set, not the bound, ends
	// the traversal. The test passes by terminating.
	refs := NewManifestScanner(100, false).ScanTree(nm, map[string]bool{"absent-pkg": true})
	if len(refs) != 0 {
		t.Errorf("got %d refs, want 0", len(refs))
	}
}

func TestScanProjectManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `{
		"name": "my-app",
		"dependencies": {"evil-pkg": "^1.0.0", "harmless": "2.x"},
		"devDependencies": {"evil-dev": "1.2.3"}
	}`)

	decls := ScanProjectManifest(root, map[string]bool{"evil-pkg": true, "evil-dev": true})
	if len(decls) != 2 {
		t.Fatalf("got %d declarations, want 2", len(decls))
	}
	// Sorted by name.
	if decls[0].Name != "evil-dev" || decls[1].Name != "evil-pkg" {
		t.Errorf("declarations = %+v, want evil-dev then evil-pkg", decls)
	}
	if decls[1].DeclaredRange != "^1.0.0" {
		t.Errorf("DeclaredRange = %q, want ^1.0.0", decls[1].DeclaredRange)
	}
	if filepath.Base(decls[0].ManifestPath) != manifestFile {
		t.Errorf("ManifestPath = %q, want a package.json path", decls[0].ManifestPath)
	}
}

func TestScanProjectManifestMissing(t *testing.T) {
	if decls := ScanProjectManifest(t.TempDir(), map[string]bool{"evil-pkg": true}); len(decls) != 0 {
		t.Errorf("got %d declarations for missing manifest, want 0", len(decls))
	}
}
