package changelog

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// CompareBuilds orders build versions so that "19.5.99" < "19.5.501".
// Keys that form valid semantic versions are compared with semver, the rest
// fall back to a component-wise comparison where numeric components compare
// numerically and everything else compares lexicographically.
func CompareBuilds(a, b string) int {
	if a == b {
		return 0
	}
	va, vb := "v"+a, "v"+b
	if semver.IsValid(va) && semver.IsValid(vb) {
		if c := semver.Compare(va, vb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	}

	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if c := compareComponent(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	}
	return strings.Compare(a, b)
}

func compareComponent(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	// numbers sort before words so "20.0.1" < "20.0.beta"
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// SortBuilds sorts builds in place by CompareBuilds.
func SortBuilds(builds []string) {
	slices.SortFunc(builds, CompareBuilds)
}

// InLine reports whether build belongs to the release line, ex. build
// "19.5.501" is in line "19.5" but not in line "19.50". The empty line contains
// every build.
func InLine(build, line string) bool {
	if line == "" || build == line {
		return true
	}
	return strings.HasPrefix(build, line+".")
}
