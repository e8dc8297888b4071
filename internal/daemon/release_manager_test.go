package daemon

import "testing"

func TestParseSemVer(t *testing.T) {
	v, err := ParseSemVer("1.2.3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Major != 1 || v.Minor != 2 || v.Patch != 3 || v.PreRelease != "" {
		t.Errorf("got %+v", v)
	}
}

func TestParseSemVer_VPrefix(t *testing.T) {
	v, err := ParseSemVer("v2.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Major != 2 || v.Minor != 0 || v.Patch != 1 {
		t.Errorf("got %+v", v)
	}
}

func TestParseSemVer_PreRelease(t *testing.T) {
	v, err := ParseSemVer("1.0.0-beta.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.PreRelease != "beta.1" {
		t.Errorf("got pre-release %q", v.PreRelease)
	}
}

func TestParseSemVer_Invalid(t *testing.T) {
	for _, s := range []string{"1.2", "not.a.version", ""} {
		if _, err := ParseSemVer(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestSemVer_Bumps(t *testing.T) {
	v := NewSemVer(1, 5, 3)
	if got := v.BumpMajor(); got != NewSemVer(2, 0, 0) {
		t.Errorf("BumpMajor = %+v", got)
	}
	if got := v.BumpMinor(); got != NewSemVer(1, 6, 0) {
		t.Errorf("BumpMinor = %+v", got)
	}
	if got := v.BumpPatch(); got != NewSemVer(1, 5, 4) {
		t.Errorf("BumpPatch = %+v", got)
	}
}

func TestSemVer_ToTag(t *testing.T) {
	if got := NewSemVer(1, 2, 3).ToTag(); got != "v1.2.3" {
		t.Errorf("ToTag = %q", got)
	}
}

func TestChangelogEntry_Categorize(t *testing.T) {
	cases := map[string]string{
		"feat: add swarm routing":  "Features",
		"fix: nil pointer in coach": "Bug Fixes",
		"docs: update readme":      "Documentation",
		"chore: bump deps":         "Chores",
		"something else":           "Other",
	}
	for msg, want := range cases {
		e := NewChangelogEntry("abc123", msg, "dev")
		if e.Category != want {
			t.Errorf("categorize(%q) = %q, want %q", msg, e.Category, want)
		}
	}
}

func TestReleaseManager_CreateRelease(t *testing.T) {
	rm := NewReleaseManager(NewSemVer(1, 0, 0), nil)
	entries := []ChangelogEntry{
		NewChangelogEntry("a1", "feat: add workflow core", "alice"),
		NewChangelogEntry("a2", "fix: swarm routing bug", "bob"),
	}
	spec := rm.CreateRelease(BumpMinor, entries)

	if spec.Version != NewSemVer(1, 1, 0) {
		t.Errorf("version = %+v", spec.Version)
	}
	if spec.TagName != "v1.1.0" {
		t.Errorf("tag = %q", spec.TagName)
	}
	if spec.PreviousVersion == nil || *spec.PreviousVersion != NewSemVer(1, 0, 0) {
		t.Errorf("previous version = %+v", spec.PreviousVersion)
	}
	if rm.CurrentVersion() != NewSemVer(1, 1, 0) {
		t.Errorf("current version not updated: %+v", rm.CurrentVersion())
	}
	if len(rm.Releases()) != 1 {
		t.Fatalf("expected 1 release in history, got %d", len(rm.Releases()))
	}
}

func TestSuggestBumpType(t *testing.T) {
	major := []ChangelogEntry{NewChangelogEntry("a", "feat!: breaking change to core API", "dev")}
	if got := SuggestBumpType(major); got != BumpMajor {
		t.Errorf("got %v, want major", got)
	}

	minor := []ChangelogEntry{NewChangelogEntry("a", "feat: add new core", "dev")}
	if got := SuggestBumpType(minor); got != BumpMinor {
		t.Errorf("got %v, want minor", got)
	}

	patch := []ChangelogEntry{NewChangelogEntry("a", "fix: typo", "dev")}
	if got := SuggestBumpType(patch); got != BumpPatch {
		t.Errorf("got %v, want patch", got)
	}
}
