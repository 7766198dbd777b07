package wheel

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/lixenwraith/guild-wheel/vmath"
)

// boundaryTolerance absorbs float drift when an angle is meant to sit
// exactly on a segment start
const boundaryTolerance = 1e-12

// Segment is one contiguous angular interval [Start, End) of the wheel
// Angles are radians, clockwise in screen space (y grows downward)
type Segment struct {
	Index     int
	Candidate Candidate
	Start     float64
	End       float64
	Mid       float64
	Color     colorful.Color
}

// Width returns End - Start
func (s Segment) Width() float64 { return s.End - s.Start }

// Layout partitions the circle into one equal segment per candidate, in
// set order, starting at ZeroOffset
// The zero Layout is the empty sentinel: no segments, spins refused
type Layout struct {
	ZeroOffset float64
	Width      float64
	set        CandidateSet
	segments   []Segment
}

// NewLayout computes the segment geometry for set
// Pure: identical input yields identical boundaries and colors
func NewLayout(set CandidateSet, zeroOffset float64) Layout {
	offset := vmath.NormalizeAngle(zeroOffset)
	n := set.Len()
	if n == 0 {
		return Layout{ZeroOffset: offset}
	}

	width := vmath.TwoPi / float64(n)
	segments := make([]Segment, n)
	for i := 0; i < n; i++ {
		start := offset + float64(i)*width
		end := offset + float64(i+1)*width
		if i == n-1 {
			// Close the circle exactly regardless of accumulated rounding
			end = offset + vmath.TwoPi
		}
		segments[i] = Segment{
			Index:     i,
			Candidate: set.items[i],
			Start:     start,
			End:       end,
			Mid:       start + (end-start)/2,
			Color:     SegmentColor(i),
		}
	}

	return Layout{
		ZeroOffset: offset,
		Width:      width,
		set:        set,
		segments:   segments,
	}
}

// Empty reports the no-segments sentinel
func (l Layout) Empty() bool { return len(l.segments) == 0 }

func (l Layout) Len() int { return len(l.segments) }

// Set returns the candidate set the layout was built from
func (l Layout) Set() CandidateSet { return l.set }

// Segment returns segment i with a private copy of its candidate
func (l Layout) Segment(i int) Segment {
	s := l.segments[i]
	s.Candidate = s.Candidate.clone()
	return s
}

// Segments returns all segments in index order
func (l Layout) Segments() []Segment {
	out := make([]Segment, len(l.segments))
	for i := range l.segments {
		out[i] = l.Segment(i)
	}
	return out
}

// IndexOf returns the segment index of candidate id, or -1
func (l Layout) IndexOf(id string) int {
	return l.set.IndexOf(id)
}

// Range returns the [start, end) angles of segment index
func (l Layout) Range(index int) (start, end float64) {
	s := l.segments[index]
	return s.Start, s.End
}

// AngleToIndex returns the segment containing angle, or -1 when empty
// An angle exactly on a boundary belongs to the segment starting there
func (l Layout) AngleToIndex(angle float64) int {
	n := len(l.segments)
	if n == 0 {
		return -1
	}
	if n == 1 {
		return 0
	}

	rel := vmath.NormalizeAngle(angle - l.ZeroOffset)
	idx := int(math.Floor(rel / l.Width))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}

	// Snap up when drift left the angle a hair below the next boundary
	if float64(idx+1)*l.Width-rel <= boundaryTolerance {
		idx = (idx + 1) % n
	}
	return idx
}

// LabelAngle returns the angle at which segment index's label is anchored
func (l Layout) LabelAngle(index int) float64 {
	return l.segments[index].Mid
}
