package changelog

import (
	"encoding/json"
)

// Snapshot stores the categorized fixes of every build seen on the changelog
// page, ex. {"19.5.501": {"sop": {"Fix bugs"}}}.
type Snapshot struct {
	builds map[string]*CategorySet
}

func New() *Snapshot {
	return &Snapshot{builds: map[string]*CategorySet{}}
}

// WithSingle creates a snapshot that contains exactly one build.
func WithSingle(build string, set *CategorySet) *Snapshot {
	s := New()
	if set == nil {
		set = NewCategorySet()
	}
	s.builds[build] = set
	return s
}

// Fill records a single (build, category, description) entry.
func (s *Snapshot) Fill(build, category, description string) {
	s.set(build).Add(category, description)
}

func (s *Snapshot) set(build string) *CategorySet {
	if s.builds == nil {
		s.builds = map[string]*CategorySet{}
	}
	set, ok := s.builds[build]
	if !ok {
		set = NewCategorySet()
		s.builds[build] = set
	}
	return set
}

// Builds returns the build keys sorted by CompareBuilds.
func (s *Snapshot) Builds() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.builds))
	for k := range s.builds {
		keys = append(keys, k)
	}
	SortBuilds(keys)
	return keys
}

func (s *Snapshot) Get(build string) (*CategorySet, bool) {
	if s == nil {
		return nil, false
	}
	set, ok := s.builds[build]
	return set, ok
}

// First returns the oldest build, ok is false if the snapshot is empty.
func (s *Snapshot) First() (build string, set *CategorySet, ok bool) {
	return s.FirstIn("")
}

// Last returns the most recent build, ok is false if the snapshot is empty.
func (s *Snapshot) Last() (build string, set *CategorySet, ok bool) {
	return s.LastIn("")
}

// FirstIn is First restricted to the builds of a release line.
func (s *Snapshot) FirstIn(line string) (build string, set *CategorySet, ok bool) {
	for _, b := range s.Builds() {
		if InLine(b, line) {
			return b, s.builds[b], true
		}
	}
	return "", nil, false
}

// LastIn is Last restricted to the builds of a release line.
func (s *Snapshot) LastIn(line string) (build string, set *CategorySet, ok bool) {
	builds := s.Builds()
	for i := len(builds) - 1; i >= 0; i-- {
		if InLine(builds[i], line) {
			return builds[i], s.builds[builds[i]], true
		}
	}
	return "", nil, false
}

func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.builds) == 0
}

// Len returns the amount of builds.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.builds)
}

// Merge adds every entry of other into s.
func (s *Snapshot) Merge(other *Snapshot) {
	if other == nil {
		return
	}
	for build, set := range other.builds {
		s.set(build).Merge(set)
	}
}

// Retain drops every build that is not listed.
func (s *Snapshot) Retain(builds ...string) {
	if s == nil {
		return
	}
	keep := make(map[string]struct{}, len(builds))
	for _, b := range builds {
		keep[b] = struct{}{}
	}
	for b := range s.builds {
		if _, ok := keep[b]; !ok {
			delete(s.builds, b)
		}
	}
}

// Prune removes empty categories, and then builds without any categories.
func (s *Snapshot) Prune() {
	if s == nil {
		return
	}
	for b, set := range s.builds {
		set.Prune()
		if set.IsEmpty() {
			delete(s.builds, b)
		}
	}
}

func (s *Snapshot) Clone() *Snapshot {
	out := New()
	if s == nil {
		return out
	}
	for b, set := range s.builds {
		out.builds[b] = set.Clone()
	}
	return out
}

func (s *Snapshot) Equal(other *Snapshot) bool {
	if s.Len() != other.Len() {
		return false
	}
	for b, set := range s.builds {
		otherSet, ok := other.builds[b]
		if !ok || !set.Equal(otherSet) {
			return false
		}
	}
	return true
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	if s == nil || s.builds == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.builds)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]*CategorySet
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.builds = make(map[string]*CategorySet, len(raw))
	for b, set := range raw {
		if set == nil {
			set = NewCategorySet()
		}
		s.builds[b] = set
	}
	return nil
}
