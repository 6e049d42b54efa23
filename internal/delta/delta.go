package delta

import (
	"sort"
	"time"

	"remix/internal/segment"
)

// Op is the wire tag of a delta variant.
type Op string

const (
	OpModify Op = "modify"
	OpAdd    Op = "add"
	OpDelete Op = "delete"
)

// Delta is one recorded edit intention against a segment tree.
type Delta interface {
	Op() Op
	At() time.Time
	// Target is the id the delta depends on: the segment for Modify and
	// Delete, the anchor (or parent) for Add, "" for a root prepend.
	Target() string
}

// Modify updates text and/or title of an existing segment. Nil fields are
// left untouched.
type Modify struct {
	SegmentID string
	NewText   *string
	NewTitle  *string
	Timestamp time.Time
}

func (m Modify) Op() Op         { return OpModify }
func (m Modify) At() time.Time  { return m.Timestamp }
func (m Modify) Target() string { return m.SegmentID }

// Add inserts Segment right after AfterID, at whatever level AfterID lives.
// With a nil AfterID the segment is prepended to ParentID's children, or to
// the root list when ParentID is nil too.
type Add struct {
	AfterID   *string
	ParentID  *string
	Segment   segment.Segment
	Timestamp time.Time
}

func (a Add) Op() Op        { return OpAdd }
func (a Add) At() time.Time { return a.Timestamp }
func (a Add) Target() string {
	if a.AfterID != nil {
		return *a.AfterID
	}
	return segment.Deref(a.ParentID)
}

// Delete removes a segment and its whole subtree.
type Delete struct {
	SegmentID string
	Timestamp time.Time
}

func (d Delete) Op() Op         { return OpDelete }
func (d Delete) At() time.Time  { return d.Timestamp }
func (d Delete) Target() string { return d.SegmentID }

// Sorted returns a copy of deltas in ascending timestamp order. Equal
// timestamps keep their relative order.
func Sorted(deltas []Delta) []Delta {
	out := make([]Delta, 0, len(deltas))
	for _, d := range deltas {
		if d != nil {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At().Before(out[j].At())
	})
	return out
}
