package changelog

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func snapshotOf(entries map[string]map[string][]string) *Snapshot {
	s := New()
	for build, categories := range entries {
		for category, descriptions := range categories {
			for _, d := range descriptions {
				s.Fill(build, category, d)
			}
		}
	}
	return s
}

// dump turns a snapshot into plain maps so failures print readable diffs.
func dump(s *Snapshot) map[string]map[string][]string {
	out := map[string]map[string][]string{}
	for _, build := range s.Builds() {
		set, _ := s.Get(build)
		categories := map[string][]string{}
		for _, c := range set.Categories() {
			categories[c] = set.EntriesFor(c)
		}
		out[build] = categories
	}
	return out
}

func TestDiff(t *testing.T) {
	prev := NewCategorySet()
	prev.Add("sop", "Fix bugs")
	prev.Add("lop", "Fix usd")

	next := NewCategorySet()
	next.Add("sop", "Fix bugs")
	next.Add("sop", "Fix crash")
	next.Add("lop", "Fix usd")
	next.Add("vex", "New function")

	diffed := Diff(prev, next)
	require.Equal(t, []string{"sop", "vex"}, diffed.Categories())
	require.Equal(t, []string{"Fix crash"}, diffed.EntriesFor("sop"))
	require.Equal(t, []string{"New function"}, diffed.EntriesFor("vex"))

	for _, c := range diffed.Categories() {
		for _, e := range diffed.EntriesFor(c) {
			require.False(t, prev.Has(c, e), "%s/%s was already in prev", c, e)
		}
	}

	require.True(t, Diff(next, next).IsEmpty())
	require.True(t, Diff(nil, next).Equal(next))
	require.True(t, Diff(next, nil).IsEmpty())
}

func TestUpdate(t *testing.T) {
	testCases := []struct {
		name     string
		prev     map[string]map[string][]string
		next     map[string]map[string][]string
		expected map[string]map[string][]string
	}{
		{
			name:     "new entries on the same build",
			prev:     map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs"}}},
			next:     map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs", "Fix crash"}}},
			expected: map[string]map[string][]string{"19.5.501": {"sop": {"Fix crash"}}},
		},
		{
			name:     "new build is entirely new",
			prev:     map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs"}}},
			next:     map[string]map[string][]string{"19.5.510": {"sop": {"New feature"}}},
			expected: map[string]map[string][]string{"19.5.510": {"sop": {"New feature"}}},
		},
		{
			name: "new build keeps entries also seen on the old build",
			prev: map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs"}}},
			next: map[string]map[string][]string{
				"19.5.501": {"sop": {"Fix bugs"}},
				"19.5.510": {"sop": {"Fix bugs"}},
			},
			expected: map[string]map[string][]string{"19.5.510": {"sop": {"Fix bugs"}}},
		},
		{
			name:     "nothing new",
			prev:     map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs"}, "lop": {"a"}}},
			next:     map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs"}, "lop": {"a"}}},
			expected: map[string]map[string][]string{"19.5.501": {}},
		},
		{
			name:     "first run",
			prev:     nil,
			next:     map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs"}, "lop": {"a"}}},
			expected: map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs"}, "lop": {"a"}}},
		},
		{
			name: "older builds are dropped",
			prev: map[string]map[string][]string{"19.5.99": {"sop": {"x"}}},
			next: map[string]map[string][]string{
				"19.5.99":  {"sop": {"x"}},
				"19.5.501": {"sop": {"y"}},
			},
			expected: map[string]map[string][]string{"19.5.501": {"sop": {"y"}}},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			next := snapshotOf(test.next)
			err := next.Update(snapshotOf(test.prev))
			require.NoError(t, err)

			diff := cmp.Diff(test.expected, dump(next))
			if diff != "" {
				t.Fatalf("unexpected update result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateEmptyCurrent(t *testing.T) {
	prev := snapshotOf(map[string]map[string][]string{"19.5.501": {"sop": {"Fix bugs"}}})
	err := New().Update(prev)
	require.True(t, errors.Is(err, ErrPrecondition))

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
}

func TestDeltaLines(t *testing.T) {
	prev := snapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"a"}},
		"20.0.100": {"lop": {"b"}},
	})
	next := snapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"a", "c"}},
		"20.0.101": {"lop": {"b"}},
	})

	build, delta, err := Delta(prev, next, "19.5")
	require.NoError(t, err)
	require.Equal(t, "19.5.501", build)
	require.Equal(t, []string{"c"}, delta.EntriesFor("sop"))

	build, delta, err = Delta(prev, next, "20.0")
	require.NoError(t, err)
	require.Equal(t, "20.0.101", build)
	require.Equal(t, []string{"b"}, delta.EntriesFor("lop"))

	_, _, err = Delta(prev, next, "18.5")
	require.ErrorIs(t, err, ErrPrecondition)

	// the unfiltered line picks the overall latest build
	build, _, err = Delta(prev, next, "")
	require.NoError(t, err)
	require.Equal(t, "20.0.101", build)
}

func TestUpdateDoesNotMutatePrev(t *testing.T) {
	prev := snapshotOf(map[string]map[string][]string{"19.5.501": {"sop": {"a"}}})
	before := prev.Clone()

	next := snapshotOf(map[string]map[string][]string{"19.5.501": {"sop": {"a", "b"}}})
	require.NoError(t, next.Update(prev))
	require.True(t, prev.Equal(before))
}

func TestDeltaSeen(t *testing.T) {
	history := snapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
		"19.5.510": {"sop": {"New feature"}},
	})

	// the page went back to a build that was already seen
	build, delta, err := DeltaSeen(history, snapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}, "lop": {"Fix usd"}},
	}), "19.5")
	require.NoError(t, err)
	require.Equal(t, "19.5.501", build)
	require.Equal(t, []string{"lop"}, delta.Categories())
	require.Equal(t, []string{"Fix usd"}, delta.EntriesFor("lop"))

	// an older build never seen is new as a whole, like Delta
	build, delta, err = DeltaSeen(history, snapshotOf(map[string]map[string][]string{
		"19.5.409": {"sop": {"Fix old"}},
	}), "19.5")
	require.NoError(t, err)
	require.Equal(t, "19.5.409", build)
	require.Equal(t, []string{"Fix old"}, delta.EntriesFor("sop"))

	_, _, err = DeltaSeen(history, New(), "19.5")
	require.ErrorIs(t, err, ErrPrecondition)
}
