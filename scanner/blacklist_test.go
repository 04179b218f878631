package scanner

import (
	"strings"
	"testing"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"v1.2.3", "1.2.3"},
		{"1.2.3", "1.2.3"},
		{"  v1.2.3 ", "1.2.3"},
		{"1.0.0-beta.1", "1.0.0-beta.1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeVersion(tt.in); got != tt.want {
			t.Errorf("NormalizeVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeVersionIdempotent(t *testing.T) {
	for _, v := range []string{"v1.2.3", "1.2.3", "v0.0.1-rc.2", ""} {
		once := NormalizeVersion(v)
		if twice := NormalizeVersion(once); twice != once {
			t.Errorf("normalize not idempotent for %q: %q != %q", v, twice, once)
		}
	}
	if NormalizeVersion("v1.2.3") != NormalizeVersion("1.2.3") {
		t.Error("v1.2.3 and 1.2.3 should normalize to the same value")
	}
}

func TestLoadBlacklist(t *testing.T) {
	bl, err := LoadBlacklist([]BlacklistEntry{
		{Name: "evil-pkg", Versions: []string{"v1.0.0", "1.0.1"}},
		{Name: "@scope/evil", Versions: nil},
	})
	if err != nil {
		t.Fatalf("LoadBlacklist() error = %v", err)
	}

	versions, ok := bl.Lookup("evil-pkg")
	if !ok {
		t.Fatal("evil-pkg should be listed")
	}
	// Leading v stripped before storage.
	if len(versions) != 2 || versions[0] != "1.0.0" || versions[1] != "1.0.1" {
		t.Errorf("Lookup(evil-pkg) = %v, want [1.0.0 1.0.1]", versions)
	}

	if !bl.IsAnyVersionFlagged("@scope/evil") {
		t.Error("@scope/evil with no versions should flag any version")
	}
	if bl.IsAnyVersionFlagged("evil-pkg") {
		t.Error("evil-pkg has specific versions, not any-version")
	}
	if _, ok := bl.Lookup("harmless"); ok {
		t.Error("harmless should not be listed")
	}
	if bl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", bl.Len())
	}
}

func TestLoadBlacklistBareEntryWins(t *testing.T) {
	// A bare (any-version) entry subsumes a versioned one for the same
	// name, in either order.
	orders := [][]BlacklistEntry{
		{{Name: "evil-pkg"}, {Name: "evil-pkg", Versions: []string{"1.0.0"}}},
		{{Name: "evil-pkg", Versions: []string{"1.0.0"}}, {Name: "evil-pkg"}},
	}
	for i, entries := range orders {
		bl, err := LoadBlacklist(entries)
		if err != nil {
			t.Fatalf("order %d: LoadBlacklist() error = %v", i, err)
		}
		if !bl.IsAnyVersionFlagged("evil-pkg") {
			t.Errorf("order %d: bare entry should keep the any-version flag", i)
		}
		if !bl.IsCompromised("evil-pkg", "9.9.9") {
			t.Errorf("order %d: any version should be flagged", i)
		}
	}
}

func TestLoadBlacklistEmptyName(t *testing.T) {
	if _, err := LoadBlacklist([]BlacklistEntry{{Name: "  "}}); err == nil {
		t.Error("expected error for empty package name")
	}
}

func TestIsCompromised(t *testing.T) {
	bl, err := LoadBlacklist([]BlacklistEntry{
		{Name: "evil-pkg", Versions: []string{"1.0.0", "1.0.1"}},
		{Name: "doomed-pkg"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		version string
		want    bool
	}{
		{"evil-pkg", "1.0.0", true},
		{"evil-pkg", "v1.0.0", true}, // normalized before comparison
		{"evil-pkg", "1.0.1", true},
		{"evil-pkg", "2.0.0", false},
		{"evil-pkg", "1.0.2", false}, // one patch away is NOT flagged
		{"evil-pkg", "unknown", false},
		{"doomed-pkg", "0.0.1", true}, // empty set flags any version
		{"doomed-pkg", "unknown", true},
		{"harmless", "1.0.0", false},
	}
	for _, tt := range tests {
		if got := bl.IsCompromised(tt.name, tt.version); got != tt.want {
			t.Errorf("IsCompromised(%q, %q) = %v, want %v", tt.name, tt.version, got, tt.want)
		}
	}
}

func TestParseBlacklistText(t *testing.T) {
	input := `# Known compromised packages
================================
evil-pkg (v1.0.0, v1.0.1)
@scope/evil (2.0.0)
doomed-pkg
--------------------------------

another-pkg (v3.1.4)
`
	entries, err := ParseBlacklistText(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBlacklistText() error = %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	if entries[0].Name != "evil-pkg" || len(entries[0].Versions) != 2 {
		t.Errorf("entry 0 = %+v, want evil-pkg with 2 versions", entries[0])
	}
	if entries[1].Name != "@scope/evil" || len(entries[1].Versions) != 1 {
		t.Errorf("entry 1 = %+v, want @scope/evil with 1 version", entries[1])
	}
	if entries[2].Name != "doomed-pkg" || len(entries[2].Versions) != 0 {
		t.Errorf("entry 2 = %+v, want bare doomed-pkg", entries[2])
	}
}

func TestParseBlacklistTextMalformed(t *testing.T) {
	tests := []string{
		"evil-pkg (v1.0.0",       // unclosed parens
		"evil pkg (v1.0.0)",      // space in name
		"# only comments\n\n---", // no entries at all
	}
	for _, input := range tests {
		if _, err := ParseBlacklistText(strings.NewReader(input)); err == nil {
			t.Errorf("expected parse error for %q", input)
		}
	}
}
