package delta

import "remix/internal/segment"

// Prune drops Modify and Delete deltas whose segment no longer exists in the
// latest upstream tree. Adds are user-authored content and always survive;
// an Add whose anchor disappeared shows up as skipped in Apply's report.
// Relative order is preserved.
func Prune(deltas []Delta, latestOriginal []segment.Segment) []Delta {
	valid := segment.Flatten(latestOriginal)
	out := make([]Delta, 0, len(deltas))
	for _, d := range deltas {
		switch v := d.(type) {
		case Add:
			out = append(out, v)
		case Modify, Delete:
			if _, ok := valid[v.Target()]; ok {
				out = append(out, v)
			}
		}
	}
	return out
}
