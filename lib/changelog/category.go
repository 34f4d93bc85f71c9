package changelog

import (
	"encoding/json"
	"slices"
)

// CategorySet stores the fix descriptions of a single build grouped by
// category, ex. {"sop": {"Fix bugs"}}.
type CategorySet struct {
	categories map[string]map[string]struct{}
}

func NewCategorySet() *CategorySet {
	return &CategorySet{categories: map[string]map[string]struct{}{}}
}

// Add inserts description into the set of category, creating the category
// if it does not exist yet. Adding the same pair twice has no effect.
func (c *CategorySet) Add(category, description string) {
	if c.categories == nil {
		c.categories = map[string]map[string]struct{}{}
	}
	entries, ok := c.categories[category]
	if !ok {
		entries = map[string]struct{}{}
		c.categories[category] = entries
	}
	entries[description] = struct{}{}
}

// Categories returns the category keys in sorted order.
func (c *CategorySet) Categories() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.categories))
	for k := range c.categories {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// EntriesFor returns the sorted descriptions of a category, or nil if the
// category is unknown.
func (c *CategorySet) EntriesFor(category string) []string {
	if c == nil {
		return nil
	}
	entries, ok := c.categories[category]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(entries))
	for e := range entries {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

func (c *CategorySet) Has(category, description string) bool {
	if c == nil {
		return false
	}
	_, ok := c.categories[category][description]
	return ok
}

// IsEmpty is true when no categories are present.
func (c *CategorySet) IsEmpty() bool {
	return c == nil || len(c.categories) == 0
}

// Len returns the total amount of descriptions across all categories.
func (c *CategorySet) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, entries := range c.categories {
		n += len(entries)
	}
	return n
}

// Prune removes every category that has no descriptions left.
func (c *CategorySet) Prune() {
	if c == nil {
		return
	}
	for k, entries := range c.categories {
		if len(entries) == 0 {
			delete(c.categories, k)
		}
	}
}

func (c *CategorySet) Clone() *CategorySet {
	out := NewCategorySet()
	if c == nil {
		return out
	}
	for k, entries := range c.categories {
		copied := make(map[string]struct{}, len(entries))
		for e := range entries {
			copied[e] = struct{}{}
		}
		out.categories[k] = copied
	}
	return out
}

// Merge adds every entry of other into c.
func (c *CategorySet) Merge(other *CategorySet) {
	if other == nil {
		return
	}
	for k, entries := range other.categories {
		for e := range entries {
			c.Add(k, e)
		}
	}
}

func (c *CategorySet) Equal(other *CategorySet) bool {
	if c.IsEmpty() || other.IsEmpty() {
		return c.IsEmpty() == other.IsEmpty()
	}
	if len(c.categories) != len(other.categories) {
		return false
	}
	for k, entries := range c.categories {
		otherEntries, ok := other.categories[k]
		if !ok || len(otherEntries) != len(entries) {
			return false
		}
		for e := range entries {
			if _, ok := otherEntries[e]; !ok {
				return false
			}
		}
	}
	return true
}

func (c *CategorySet) MarshalJSON() ([]byte, error) {
	out := map[string][]string{}
	for _, k := range c.Categories() {
		entries := c.EntriesFor(k)
		if len(entries) == 0 {
			continue
		}
		out[k] = entries
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the on-disk list representation, duplicates are
// collapsed and empty categories are dropped.
func (c *CategorySet) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.categories = make(map[string]map[string]struct{}, len(raw))
	for k, entries := range raw {
		for _, e := range entries {
			c.Add(k, e)
		}
	}
	return nil
}
