package daemon

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/overhuman/agentrt/internal/observability"
)

// SemVer is a semantic version with an optional pre-release suffix.
// Grounded on original_source/autonomous/release_manager.rs's SemVer.
type SemVer struct {
	Major      uint32
	Minor      uint32
	Patch      uint32
	PreRelease string // empty means no pre-release
}

// NewSemVer builds a release version with no pre-release tag.
func NewSemVer(major, minor, patch uint32) SemVer {
	return SemVer{Major: major, Minor: minor, Patch: patch}
}

// ParseSemVer parses "1.2.3" or "1.2.3-beta.1", with an optional leading "v".
func ParseSemVer(version string) (SemVer, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")

	versionPart, preRelease := v, ""
	if idx := strings.Index(v, "-"); idx >= 0 {
		versionPart, preRelease = v[:idx], v[idx+1:]
	}

	parts := strings.Split(versionPart, ".")
	if len(parts) != 3 {
		return SemVer{}, fmt.Errorf("invalid semver %q: expected MAJOR.MINOR.PATCH", version)
	}

	major, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return SemVer{}, fmt.Errorf("invalid major version %q", parts[0])
	}
	minor, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return SemVer{}, fmt.Errorf("invalid minor version %q", parts[1])
	}
	patch, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return SemVer{}, fmt.Errorf("invalid patch version %q", parts[2])
	}

	return SemVer{Major: uint32(major), Minor: uint32(minor), Patch: uint32(patch), PreRelease: preRelease}, nil
}

// BumpMajor returns X.0.0, clearing any pre-release.
func (v SemVer) BumpMajor() SemVer { return SemVer{Major: v.Major + 1} }

// BumpMinor returns x.Y.0, clearing any pre-release.
func (v SemVer) BumpMinor() SemVer { return SemVer{Major: v.Major, Minor: v.Minor + 1} }

// BumpPatch returns x.y.Z, clearing any pre-release.
func (v SemVer) BumpPatch() SemVer {
	return SemVer{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// WithPreRelease sets a pre-release tag.
func (v SemVer) WithPreRelease(pre string) SemVer { v.PreRelease = pre; return v }

// String returns the version without a "v" prefix.
func (v SemVer) String() string {
	if v.PreRelease != "" {
		return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Patch, v.PreRelease)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ToTag returns the version with a "v" prefix, for git tags.
func (v SemVer) ToTag() string { return "v" + v.String() }

// Compare orders versions by major, then minor, then patch (pre-release
// is ignored, matching the Rust Ord impl).
func (v SemVer) Compare(other SemVer) int {
	if v.Major != other.Major {
		return cmpUint32(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmpUint32(v.Minor, other.Minor)
	}
	return cmpUint32(v.Patch, other.Patch)
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// BumpType is the kind of version increment a release performs.
type BumpType string

const (
	BumpMajor BumpType = "major"
	BumpMinor BumpType = "minor"
	BumpPatch BumpType = "patch"
)

func (b BumpType) String() string { return string(b) }

// ChangelogEntry is one commit folded into a release's changelog.
type ChangelogEntry struct {
	Hash     string
	Message  string
	Author   string
	Category string
	Date     time.Time
}

// NewChangelogEntry builds an entry, auto-categorizing message by its
// conventional-commit prefix.
func NewChangelogEntry(hash, message, author string) ChangelogEntry {
	return ChangelogEntry{
		Hash:     hash,
		Message:  message,
		Author:   author,
		Category: categorizeCommit(message),
		Date:     time.Now().UTC(),
	}
}

func categorizeCommit(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.HasPrefix(lower, "feat"):
		return "Features"
	case strings.HasPrefix(lower, "fix"):
		return "Bug Fixes"
	case strings.HasPrefix(lower, "docs"):
		return "Documentation"
	case strings.HasPrefix(lower, "test"):
		return "Tests"
	case strings.HasPrefix(lower, "refactor"):
		return "Refactoring"
	case strings.HasPrefix(lower, "perf"):
		return "Performance"
	case strings.HasPrefix(lower, "ci"), strings.HasPrefix(lower, "build"):
		return "Build/CI"
	case strings.HasPrefix(lower, "chore"):
		return "Chores"
	default:
		return "Other"
	}
}

// ReleaseSpec is a complete release: the new version, its changelog,
// and the commits behind it.
type ReleaseSpec struct {
	Version         SemVer
	PreviousVersion *SemVer
	Changelog       string
	Entries         []ChangelogEntry
	CreatedAt       time.Time
	TagName         string
}

// ReleaseManager tracks the current version and release history for one
// repository. Grounded on
// original_source/autonomous/release_manager.rs's ReleaseManager.
type ReleaseManager struct {
	currentVersion SemVer
	releases       []ReleaseSpec
	logger         *observability.Logger
}

// NewReleaseManager creates a manager starting at currentVersion.
func NewReleaseManager(currentVersion SemVer, logger *observability.Logger) *ReleaseManager {
	return &ReleaseManager{currentVersion: currentVersion, logger: logger}
}

// NewReleaseManagerFromString parses version and creates a manager.
func NewReleaseManagerFromString(version string, logger *observability.Logger) (*ReleaseManager, error) {
	v, err := ParseSemVer(version)
	if err != nil {
		return nil, err
	}
	return NewReleaseManager(v, logger), nil
}

// CurrentVersion returns the manager's current version.
func (r *ReleaseManager) CurrentVersion() SemVer { return r.currentVersion }

// Bump advances the current version by bumpType and returns the new
// version.
func (r *ReleaseManager) Bump(bumpType BumpType) SemVer {
	from := r.currentVersion
	var next SemVer
	switch bumpType {
	case BumpMajor:
		next = r.currentVersion.BumpMajor()
	case BumpMinor:
		next = r.currentVersion.BumpMinor()
	default:
		next = r.currentVersion.BumpPatch()
	}
	if r.logger != nil {
		r.logger.Info("bumped version", "from", from.String(), "to", next.String(), "bump", bumpType.String())
	}
	r.currentVersion = next
	return next
}

// GenerateChangelog renders entries grouped by category under a version
// heading.
func (r *ReleaseManager) GenerateChangelog(version SemVer, entries []ChangelogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", version.ToTag(), time.Now().UTC().Format("2006-01-02"))

	byCategory := make(map[string][]ChangelogEntry)
	for _, e := range entries {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		fmt.Fprintf(&b, "### %s\n\n", category)
		for _, e := range byCategory[category] {
			fmt.Fprintf(&b, "- %s (%s) — %s\n", e.Message, e.Hash, e.Author)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// CreateRelease bumps the version, generates a changelog, and records a
// release spec.
func (r *ReleaseManager) CreateRelease(bumpType BumpType, entries []ChangelogEntry) ReleaseSpec {
	previous := r.currentVersion
	newVersion := r.Bump(bumpType)
	changelog := r.GenerateChangelog(newVersion, entries)

	spec := ReleaseSpec{
		Version:         newVersion,
		PreviousVersion: &previous,
		Changelog:       changelog,
		Entries:         entries,
		CreatedAt:       time.Now().UTC(),
		TagName:         newVersion.ToTag(),
	}
	r.releases = append(r.releases, spec)
	return spec
}

// Releases returns the release history, oldest first.
func (r *ReleaseManager) Releases() []ReleaseSpec { return r.releases }

// SuggestBumpType infers a conventional-commits bump type: Major if any
// entry signals a breaking change, Minor if any is a Feature, else
// Patch.
func SuggestBumpType(entries []ChangelogEntry) BumpType {
	for _, e := range entries {
		if strings.Contains(e.Message, "BREAKING CHANGE") || strings.Contains(e.Message, "!") {
			return BumpMajor
		}
	}
	for _, e := range entries {
		if e.Category == "Features" {
			return BumpMinor
		}
	}
	return BumpPatch
}
