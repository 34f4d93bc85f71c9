package changelog

import (
	"errors"
	"fmt"
)

// ErrPrecondition is returned when a diff is requested for a snapshot that
// has no build to diff.
var ErrPrecondition = errors.New("precondition violated")

type PreconditionError struct {
	Line string
}

func (e *PreconditionError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("%s: snapshot has no builds", ErrPrecondition)
	}
	return fmt.Sprintf("%s: snapshot has no builds in line %s", ErrPrecondition, e.Line)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

// Diff returns the entries of next that are not in prev. The two sets must
// describe the same build. Categories only present in next are kept whole,
// categories that end up with no entries are dropped.
func Diff(prev, next *CategorySet) *CategorySet {
	out := NewCategorySet()
	if next == nil {
		return out
	}
	for category, entries := range next.categories {
		prevEntries := map[string]struct{}{}
		if prev != nil {
			prevEntries = prev.categories[category]
		}
		for e := range entries {
			if _, seen := prevEntries[e]; seen {
				continue
			}
			out.Add(category, e)
		}
	}
	return out
}

// Delta computes the new entries of the most recent build of a release line.
//
// When prev's most recent build in the line equals next's, only the entries
// missing from prev are returned. When the build was bumped, or prev has no
// build in the line at all (first run), everything in next's build is new.
func Delta(prev, next *Snapshot, line string) (build string, delta *CategorySet, err error) {
	nextBuild, nextSet, ok := next.LastIn(line)
	if !ok {
		return "", nil, &PreconditionError{Line: line}
	}

	prevBuild, prevSet, ok := prev.LastIn(line)
	if ok && prevBuild == nextBuild {
		return nextBuild, Diff(prevSet, nextSet), nil
	}

	delta = nextSet.Clone()
	delta.Prune()
	return nextBuild, delta, nil
}

// DeltaSeen is Delta for a history that may hold builds newer than the
// ones next lists, as when a build is pulled from the page. If history
// already has next's most recent build, only the entries missing from that
// stored build are new.
func DeltaSeen(history, next *Snapshot, line string) (build string, delta *CategorySet, err error) {
	build, delta, err = Delta(history, next, line)
	if err != nil {
		return "", nil, err
	}
	stored, ok := history.Get(build)
	if !ok {
		return build, delta, nil
	}
	_, nextSet, _ := next.LastIn(line)
	return build, Diff(stored, nextSet), nil
}

// Update replaces s with a snapshot holding only the most recent build and
// the entries of it that prev has not seen.
func (s *Snapshot) Update(prev *Snapshot) error {
	return s.UpdateLine(prev, "")
}

// UpdateLine is Update restricted to a release line, every build outside of
// the line's most recent one is dropped.
func (s *Snapshot) UpdateLine(prev *Snapshot, line string) error {
	build, delta, err := Delta(prev, s, line)
	if err != nil {
		return err
	}
	*s = *WithSingle(build, delta)
	return nil
}
