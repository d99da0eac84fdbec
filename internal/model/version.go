// Package model provides the addressing and versioning vocabulary shared by
// the transformer registry: path elements, path addresses, model versions,
// and version ranges.
package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Version identifies a revision of the management model as an ordered
// (major, minor, micro) triple. The zero value is version 0.0.0.
type Version struct {
	major int
	minor int
	micro int
}

// NewVersion creates a version from explicit components.
// Negative components are clamped to zero.
func NewVersion(major, minor, micro int) Version {
	return Version{major: max(major, 0), minor: max(minor, 0), micro: max(micro, 0)}
}

// FormatError reports malformed version text. It aborts only the call that
// parsed the text; registry state is never touched by a failed parse.
type FormatError struct {
	Text   string
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed version %q: %s", e.Text, e.Reason)
}

// ParseVersion parses a dot-separated version string of 1-3 numeric
// components. Missing trailing components default to 0, so "3" parses as
// 3.0.0 and "1.2" as 1.2.0. A *FormatError is returned for more than three
// components, an empty component, or a non-numeric component.
func ParseVersion(text string) (Version, error) {
	parts := strings.Split(text, ".")
	if len(parts) > 3 {
		return Version{}, &FormatError{Text: text, Reason: "more than three components"}
	}

	components := make([]int, 3)
	for i, part := range parts {
		if part == "" {
			return Version{}, &FormatError{Text: text, Reason: "empty component"}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, &FormatError{Text: text, Reason: fmt.Sprintf("component %q is not a non-negative integer", part)}
		}
		components[i] = n
	}

	return Version{major: components[0], minor: components[1], micro: components[2]}, nil
}

// Major returns the major component.
func (v Version) Major() int { return v.major }

// Minor returns the minor component.
func (v Version) Minor() int { return v.minor }

// Micro returns the micro component.
func (v Version) Micro() int { return v.micro }

// Compare orders versions lexicographically over (major, minor, micro).
// It returns -1 if v < other, 0 if equal, and 1 if v > other.
func (v Version) Compare(other Version) int {
	if v.major != other.major {
		return compareInt(v.major, other.major)
	}
	if v.minor != other.minor {
		return compareInt(v.minor, other.minor)
	}
	return compareInt(v.micro, other.micro)
}

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// String renders the version as "major.minor.micro".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.micro)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// VersionRange is the explicit, ordered set of distinct versions a single
// registration call fans out over. Callers supply the expanded set; the
// range is not a min/max pair.
type VersionRange struct {
	versions []Version
}

// NewVersionRange builds a range from the given versions, dropping
// duplicates and sorting ascending.
func NewVersionRange(versions ...Version) VersionRange {
	seen := make(map[Version]struct{}, len(versions))
	distinct := make([]Version, 0, len(versions))
	for _, v := range versions {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].Less(distinct[j]) })
	return VersionRange{versions: distinct}
}

// SingleVersion is shorthand for a range covering exactly one version.
func SingleVersion(v Version) VersionRange {
	return VersionRange{versions: []Version{v}}
}

// Versions returns the versions in ascending order. The returned slice is a
// copy; mutating it does not affect the range.
func (r VersionRange) Versions() []Version {
	out := make([]Version, len(r.versions))
	copy(out, r.versions)
	return out
}

// Len returns the number of versions in the range.
func (r VersionRange) Len() int { return len(r.versions) }

// Contains reports whether v is one of the range's versions.
func (r VersionRange) Contains(v Version) bool {
	for _, rv := range r.versions {
		if rv == v {
			return true
		}
	}
	return false
}
