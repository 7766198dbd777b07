package wheel

import (
	"errors"
	"fmt"
	"maps"
)

var (
	ErrEmptyCandidateID     = errors.New("candidate ID must not be empty")
	ErrDuplicateCandidateID = errors.New("duplicate candidate ID")
)

// Candidate is one entry on the wheel
// ID is opaque and unique within a set; Meta is carried through untouched
type Candidate struct {
	ID    string
	Label string
	Meta  map[string]string
}

// DisplayLabel falls back to the ID when no label is set
func (c Candidate) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

func (c Candidate) clone() Candidate {
	c.Meta = maps.Clone(c.Meta)
	return c
}

// CandidateSet is an ordered, immutable sequence of candidates
// Order determines angular position on the wheel
type CandidateSet struct {
	items []Candidate
	index map[string]int
}

// NewCandidateSet copies the input so later mutation by the caller cannot
// reach a set that is frozen into a spin
func NewCandidateSet(candidates []Candidate) (CandidateSet, error) {
	set := CandidateSet{
		items: make([]Candidate, 0, len(candidates)),
		index: make(map[string]int, len(candidates)),
	}
	for i, c := range candidates {
		if c.ID == "" {
			return CandidateSet{}, fmt.Errorf("candidate %d: %w", i, ErrEmptyCandidateID)
		}
		if _, dup := set.index[c.ID]; dup {
			return CandidateSet{}, fmt.Errorf("candidate %q: %w", c.ID, ErrDuplicateCandidateID)
		}
		set.index[c.ID] = len(set.items)
		set.items = append(set.items, c.clone())
	}
	return set, nil
}

func (s CandidateSet) Len() int { return len(s.items) }

func (s CandidateSet) Empty() bool { return len(s.items) == 0 }

// At returns a copy of the candidate at position i
func (s CandidateSet) At(i int) Candidate {
	return s.items[i].clone()
}

// IndexOf returns the position of id, or -1
func (s CandidateSet) IndexOf(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Contains reports whether id is in the set
func (s CandidateSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// All returns a copy of the candidates in order
func (s CandidateSet) All() []Candidate {
	out := make([]Candidate, len(s.items))
	for i, c := range s.items {
		out[i] = c.clone()
	}
	return out
}

// SameOrder reports whether both sets hold the same IDs and labels in the same order
func (s CandidateSet) SameOrder(other CandidateSet) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if s.items[i].ID != other.items[i].ID || s.items[i].Label != other.items[i].Label {
			return false
		}
	}
	return true
}
