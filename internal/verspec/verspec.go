// Package verspec implements the VersionSpec value described in spec.md
// §4.1: parsing a user-supplied string into a sum type, ordering rules
// for display, and the .zigversion grammar.
package verspec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zv-tools/zv/internal/errs"
)

// Kind discriminates the VersionSpec sum type.
type Kind int

const (
	// KindSemver is a released version, e.g. "0.13.0" or "0.14".
	KindSemver Kind = iota
	// KindMaster is the moving "master" nightly tag.
	KindMaster
	// KindStable is the moving "stable" tag, resolved from the local index cache.
	KindStable
	// KindLatest is the moving "latest" tag, resolved from the network.
	KindLatest
	// KindMasterPinned identifies a specific previously-installed nightly by its dev string.
	KindMasterPinned
)

func (k Kind) String() string {
	switch k {
	case KindSemver:
		return "semver"
	case KindMaster:
		return "master"
	case KindStable:
		return "stable"
	case KindLatest:
		return "latest"
	case KindMasterPinned:
		return "master-pinned"
	default:
		return "unknown"
	}
}

// Spec is a parsed VersionSpec. Only the fields relevant to Kind are
// populated; see the Kind* constructors.
type Spec struct {
	Kind Kind

	// Literal is the exact string the user typed, preserved for
	// diagnostics. Patch auto-completion (§4.1) happens at resolution
	// time, never here, so Literal always matches what was parsed.
	Literal string

	// Semver fields, valid when Kind == KindSemver.
	Major      int
	Minor      int
	HasPatch   bool
	Patch      int
	PreRelease string

	// DevString is the embedded nightly identifier, valid when
	// Kind == KindMasterPinned, e.g. "0.16.0-dev.565+f50c64797".
	DevString string
}

// versionRegex matches "N", "N.M", or "N.M.P" with an optional
// pre-release suffix, and an optional leading "v".
var versionRegex = regexp.MustCompile(
	`^v?(\d+)(?:\.(\d+)(?:\.(\d+))?)?(?:-([0-9A-Za-z\-\.]+))?$`,
)

// Parse parses a raw string into a Spec, per spec.md §4.1.
func Parse(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)

	switch s {
	case "master":
		return Spec{Kind: KindMaster, Literal: s}, nil
	case "stable":
		return Spec{Kind: KindStable, Literal: s}, nil
	case "latest":
		return Spec{Kind: KindLatest, Literal: s}, nil
	}

	if rest, ok := strings.CutPrefix(s, "master@"); ok && rest != "" {
		return Spec{Kind: KindMasterPinned, Literal: s, DevString: rest}, nil
	}

	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return Spec{}, &errs.BadVersionSpec{Input: raw}
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Spec{}, &errs.BadVersionSpec{Input: raw}
	}

	spec := Spec{Kind: KindSemver, Literal: s, Major: major, PreRelease: m[4]}
	if m[2] != "" {
		minor, err := strconv.Atoi(m[2])
		if err != nil {
			return Spec{}, &errs.BadVersionSpec{Input: raw}
		}
		spec.Minor = minor
	}
	if m[3] != "" {
		patch, err := strconv.Atoi(m[3])
		if err != nil {
			return Spec{}, &errs.BadVersionSpec{Input: raw}
		}
		spec.Patch = patch
		spec.HasPatch = true
	}

	return spec, nil
}

// Resolved is a VersionSpec that has been normalized to a concrete,
// installable version: a full major.minor.patch, or a specific dev
// string for a nightly. Semver patch auto-completion (§4.1) happens
// here, not in Parse.
type Resolved struct {
	// IsMaster is true when this resolved version is a nightly,
	// identified by DevString rather than Major/Minor/Patch.
	IsMaster  bool
	DevString string

	Major      int
	Minor      int
	Patch      int
	PreRelease string
}

// String renders the resolved version the way it is stored on disk and
// displayed to the user.
func (r Resolved) String() string {
	if r.IsMaster {
		return r.DevString
	}
	s := fmt.Sprintf("%d.%d.%d", r.Major, r.Minor, r.Patch)
	if r.PreRelease != "" {
		s += "-" + r.PreRelease
	}
	return s
}

// Normalize completes a parsed Semver spec's missing patch component to
// ".0", per spec.md §4.1 ("auto-completes to .0 at resolution time, not
// at parse time"). Non-semver kinds are returned as Resolved values
// that callers must fill in themselves (moving tags have no fixed
// Major/Minor/Patch until looked up in the index).
func (s Spec) Normalize() Resolved {
	if s.Kind != KindSemver {
		return Resolved{}
	}
	return Resolved{Major: s.Major, Minor: s.Minor, Patch: s.Patch, PreRelease: s.PreRelease}
}

// Equal implements the equality rules from spec.md §3: structural
// equality for released semver, equality on the dev string for master
// builds (pinned or otherwise resolved).
func (r Resolved) Equal(o Resolved) bool {
	if r.IsMaster != o.IsMaster {
		return false
	}
	if r.IsMaster {
		return r.DevString == o.DevString
	}
	return r.Major == o.Major && r.Minor == o.Minor && r.Patch == o.Patch && r.PreRelease == o.PreRelease
}

// Less orders two Resolved versions for display: released semver sorts
// by natural numeric order; any master build is "newer" than any
// semver of the same major.minor (spec.md §3). Two master builds have
// no natural order beyond equality on DevString, so Less treats
// distinct nightlies as incomparable and returns false both ways.
func (r Resolved) Less(o Resolved) bool {
	if r.IsMaster && o.IsMaster {
		return false
	}
	if r.IsMaster != o.IsMaster {
		// The master build is newer than any semver sharing its
		// major.minor; lacking that context here, compare only on
		// the semver side's Major.Minor against zero for the master
		// side, which has none. Treat master as always greater.
		return !r.IsMaster
	}
	if r.Major != o.Major {
		return r.Major < o.Major
	}
	if r.Minor != o.Minor {
		return r.Minor < o.Minor
	}
	return r.Patch < o.Patch
}

// ParseZigversion extracts the version spec string from the contents of
// a .zigversion file: the first non-empty, non-comment line, trimmed.
// A file with no such line yields ok == false (treated as "no pin").
func ParseZigversion(contents string) (spec string, ok bool) {
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true
	}
	return "", false
}
