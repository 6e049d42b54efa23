package delta

import (
	"time"

	"remix/internal/segment"
)

// Compute derives the delta list that turns original into modified when
// replayed by Apply.
func Compute(original, modified []segment.Segment) []Delta {
	return ComputeAt(original, modified, time.Now().UTC())
}

// ComputeAt is Compute with an explicit invocation time. The i-th emitted
// delta is stamped at+i nanoseconds, so replay order equals emission order no
// matter how the list is stored.
//
// A segment is kept in place ("stable") when it sits under the same stable
// parent in both trees, keeps its relative order among the siblings it
// shares with the original, keeps its kind and type, and does not drop a text
// or title it used to have. Everything else in original is deleted (children
// before parents) and everything else in modified is added one segment at a
// time in pre-order, anchored after its previous sibling or prepended into
// its parent. A moved segment is therefore deleted and re-added under the
// same id. Stable segments whose text or title changed get a Modify carrying
// both fields.
func ComputeAt(original, modified []segment.Segment, at time.Time) []Delta {
	origByID := segment.Flatten(original)
	stable := make(map[string]bool)
	markStable(original, modified, stable)

	var out []Delta
	collectDeletes(original, stable, &out)
	collectAddsAndModifies(modified, nil, origByID, stable, &out)
	for i, d := range out {
		out[i] = stamp(d, at.Add(time.Duration(i)))
	}
	return out
}

func stamp(d Delta, ts time.Time) Delta {
	switch v := d.(type) {
	case Modify:
		v.Timestamp = ts
		return v
	case Add:
		v.Timestamp = ts
		return v
	case Delete:
		v.Timestamp = ts
		return v
	}
	return d
}

// markStable matches the sibling lists a and b (children of the same stable
// parent) and recurses into every matched pair.
func markStable(a, b []segment.Segment, stable map[string]bool) {
	aByID := make(map[string]segment.Segment, len(a))
	for _, s := range a {
		aByID[s.SegmentID()] = s
	}
	bByID := make(map[string]segment.Segment, len(b))
	for _, s := range b {
		bByID[s.SegmentID()] = s
	}

	var aSeq, bSeq []string
	for _, s := range a {
		if other, ok := bByID[s.SegmentID()]; ok && keepable(s, other) {
			aSeq = append(aSeq, s.SegmentID())
		}
	}
	for _, s := range b {
		if other, ok := aByID[s.SegmentID()]; ok && keepable(other, s) {
			bSeq = append(bSeq, s.SegmentID())
		}
	}

	for _, id := range longestCommonSubsequence(aSeq, bSeq) {
		if stable[id] {
			continue
		}
		stable[id] = true
		markStable(segment.ChildrenOf(aByID[id]), segment.ChildrenOf(bByID[id]), stable)
	}
}

// keepable reports whether orig can become mod through Modify alone.
func keepable(orig, mod segment.Segment) bool {
	if !segment.SameKind(orig, mod) || orig.SegmentType() != mod.SegmentType() {
		return false
	}
	ho, hm := segment.HeaderOf(orig), segment.HeaderOf(mod)
	if hm.Text == nil && ho.Text != nil {
		return false
	}
	if hm.Title == nil && ho.Title != nil {
		return false
	}
	return true
}

func longestCommonSubsequence(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	// lengths[i][j] is the LCS length of a[i:] and b[j:].
	lengths := make([][]int, len(a)+1)
	for i := range lengths {
		lengths[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lengths[i][j] = lengths[i+1][j+1] + 1
			} else {
				lengths[i][j] = max(lengths[i+1][j], lengths[i][j+1])
			}
		}
	}

	out := make([]string, 0, lengths[0][0])
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case lengths[i+1][j] >= lengths[i][j+1]:
			i++
		default:
			j++
		}
	}
	return out
}

func collectDeletes(list []segment.Segment, stable map[string]bool, out *[]Delta) {
	for _, s := range list {
		collectDeletes(segment.ChildrenOf(s), stable, out)
		if !stable[s.SegmentID()] {
			*out = append(*out, Delete{SegmentID: s.SegmentID()})
		}
	}
}

func collectAddsAndModifies(list []segment.Segment, parent *string, origByID map[string]segment.Segment, stable map[string]bool, out *[]Delta) {
	for i, s := range list {
		id := s.SegmentID()

		if stable[id] {
			if m, changed := diffFields(origByID[id], s); changed {
				*out = append(*out, m)
			}
		} else {
			add := Add{Segment: segment.Shallow(s)}
			if i > 0 {
				add.AfterID = segment.String(list[i-1].SegmentID())
			} else if parent != nil {
				add.ParentID = segment.String(*parent)
			}
			*out = append(*out, add)
		}

		if children := segment.ChildrenOf(s); len(children) > 0 {
			collectAddsAndModifies(children, segment.String(id), origByID, stable, out)
		}
	}
}

// diffFields compares text and title. On any change both of mod's fields are
// carried, even the unchanged one.
func diffFields(orig, mod segment.Segment) (Modify, bool) {
	ho, hm := segment.HeaderOf(orig), segment.HeaderOf(mod)
	if segment.SameString(ho.Text, hm.Text) && segment.SameString(ho.Title, hm.Title) {
		return Modify{}, false
	}
	m := Modify{SegmentID: hm.ID}
	if hm.Text != nil {
		m.NewText = segment.String(*hm.Text)
	}
	if hm.Title != nil {
		m.NewTitle = segment.String(*hm.Title)
	}
	return m, true
}
