package delta

import (
	"slices"

	"remix/internal/segment"
)

// SkipReason explains why a delta could not be replayed.
type SkipReason string

const (
	ReasonMissingTarget SkipReason = "missing_target"
	ReasonMissingAnchor SkipReason = "missing_anchor"
	ReasonMissingParent SkipReason = "missing_parent"
	ReasonParentIsLeaf  SkipReason = "parent_is_leaf"
	ReasonEmptySegment  SkipReason = "empty_segment"
	ReasonUnsupported   SkipReason = "unsupported"
)

// Skip records a delta that was dropped during Apply.
type Skip struct {
	Delta  Delta
	Reason SkipReason
}

// Report summarizes an Apply run. Skipped deltas are not errors: they target
// segments that no longer exist in the base tree.
type Report struct {
	Applied int
	Skipped []Skip
}

// Complete reports whether every delta was applied.
func (r Report) Complete() bool {
	return len(r.Skipped) == 0
}

// Apply replays deltas onto a copy of base in timestamp order and returns the
// effective tree. base is never mutated.
func Apply(base []segment.Segment, deltas []Delta) []segment.Segment {
	out, _ := ApplyWithReport(base, deltas)
	return out
}

// ApplyWithReport is Apply plus an account of which deltas were skipped.
func ApplyWithReport(base []segment.Segment, deltas []Delta) ([]segment.Segment, Report) {
	wt := newWorkingTree(base)
	var report Report

	for _, d := range Sorted(deltas) {
		if reason, ok := wt.apply(d); !ok {
			report.Skipped = append(report.Skipped, Skip{Delta: d, Reason: reason})
			continue
		}
		report.Applied++
	}
	return wt.root, report
}

// workingTree is a private clone of the base tree indexed by id. Each id maps
// to the slice that holds it (the root list or a wrapper's children), so a
// lookup costs one scan of that slice instead of a walk of the whole tree.
type workingTree struct {
	root       []segment.Segment
	nodes      map[string]segment.Segment
	containers map[string]*[]segment.Segment
}

func newWorkingTree(base []segment.Segment) *workingTree {
	wt := &workingTree{
		root:       segment.Clone(base),
		nodes:      make(map[string]segment.Segment),
		containers: make(map[string]*[]segment.Segment),
	}
	for _, s := range wt.root {
		wt.register(s, &wt.root)
	}
	return wt
}

func (wt *workingTree) register(s segment.Segment, container *[]segment.Segment) {
	id := s.SegmentID()
	wt.nodes[id] = s
	wt.containers[id] = container
	if w, ok := s.(*segment.Wrapper); ok {
		for _, c := range w.Children {
			wt.register(c, &w.Children)
		}
	}
}

func (wt *workingTree) unregister(s segment.Segment) {
	id := s.SegmentID()
	if wt.nodes[id] == s {
		delete(wt.nodes, id)
		delete(wt.containers, id)
	}
	if w, ok := s.(*segment.Wrapper); ok {
		for _, c := range w.Children {
			wt.unregister(c)
		}
	}
}

// locate returns the container holding id and its position there.
func (wt *workingTree) locate(id string) (*[]segment.Segment, int, bool) {
	node, ok := wt.nodes[id]
	if !ok {
		return nil, -1, false
	}
	container := wt.containers[id]
	for i, s := range *container {
		if s == node {
			return container, i, true
		}
	}
	return nil, -1, false
}

func (wt *workingTree) apply(d Delta) (SkipReason, bool) {
	switch v := d.(type) {
	case Modify:
		node, ok := wt.nodes[v.SegmentID]
		if !ok {
			return ReasonMissingTarget, false
		}
		h := segment.HeaderOf(node)
		if v.NewText != nil {
			h.Text = segment.String(*v.NewText)
		}
		if v.NewTitle != nil {
			h.Title = segment.String(*v.NewTitle)
		}
		return "", true

	case Delete:
		container, i, ok := wt.locate(v.SegmentID)
		if !ok {
			return ReasonMissingTarget, false
		}
		removed := (*container)[i]
		*container = slices.Delete(*container, i, i+1)
		wt.unregister(removed)
		return "", true

	case Add:
		seg := segment.CloneSegment(v.Segment)
		if seg == nil {
			return ReasonEmptySegment, false
		}

		if v.AfterID != nil {
			container, i, ok := wt.locate(*v.AfterID)
			if !ok {
				return ReasonMissingAnchor, false
			}
			*container = slices.Insert(*container, i+1, seg)
			wt.register(seg, container)
			return "", true
		}

		container := &wt.root
		if v.ParentID != nil {
			parent, ok := wt.nodes[*v.ParentID]
			if !ok {
				return ReasonMissingParent, false
			}
			w, ok := parent.(*segment.Wrapper)
			if !ok {
				return ReasonParentIsLeaf, false
			}
			container = &w.Children
		}
		*container = slices.Insert(*container, 0, seg)
		wt.register(seg, container)
		return "", true
	}
	return ReasonUnsupported, false
}
