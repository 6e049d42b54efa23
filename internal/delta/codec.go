package delta

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"remix/internal/segment"
)

var (
	ErrUnknownOp = errors.New("unknown delta op")
	ErrMalformed = errors.New("malformed delta")
)

// wireDelta is the persisted JSON shape shared by all variants. Presence of
// afterId (including an explicit null) matters for add, so it stays raw.
type wireDelta struct {
	Op        Op              `json:"op"`
	SegmentID string          `json:"segmentId,omitempty"`
	NewText   *string         `json:"newText,omitempty"`
	NewTitle  *string         `json:"newTitle,omitempty"`
	AfterID   json.RawMessage `json:"afterId,omitempty"`
	ParentID  *string         `json:"parentId,omitempty"`
	Segment   json.RawMessage `json:"segment,omitempty"`
	Timestamp *time.Time      `json:"timestamp"`
}

// Marshal encodes a delta list into its wire form. A nil list encodes as an
// empty array.
func Marshal(deltas []Delta) ([]byte, error) {
	out := make([]json.RawMessage, 0, len(deltas))
	for i, d := range deltas {
		b, err := MarshalOne(d)
		if err != nil {
			return nil, fmt.Errorf("delta %d: %w", i, err)
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

// MarshalOne encodes a single delta.
func MarshalOne(d Delta) ([]byte, error) {
	switch v := d.(type) {
	case Modify:
		ts := v.Timestamp.UTC()
		return json.Marshal(wireDelta{
			Op:        OpModify,
			SegmentID: v.SegmentID,
			NewText:   v.NewText,
			NewTitle:  v.NewTitle,
			Timestamp: &ts,
		})
	case Add:
		if v.Segment == nil {
			return nil, fmt.Errorf("%w: add without segment", ErrMalformed)
		}
		seg, err := segment.MarshalSegment(v.Segment)
		if err != nil {
			return nil, err
		}
		after, err := json.Marshal(v.AfterID)
		if err != nil {
			return nil, err
		}
		ts := v.Timestamp.UTC()
		return json.Marshal(wireDelta{
			Op:        OpAdd,
			AfterID:   after,
			ParentID:  v.ParentID,
			Segment:   seg,
			Timestamp: &ts,
		})
	case Delete:
		ts := v.Timestamp.UTC()
		return json.Marshal(wireDelta{
			Op:        OpDelete,
			SegmentID: v.SegmentID,
			Timestamp: &ts,
		})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownOp, d)
	}
}

// Unmarshal decodes a wire delta list, rejecting unknown ops and variants
// missing required fields.
func Unmarshal(data []byte) ([]Delta, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode delta list: %w", err)
	}
	out := make([]Delta, 0, len(raw))
	for i, r := range raw {
		d, err := UnmarshalOne(r)
		if err != nil {
			return nil, fmt.Errorf("delta %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// UnmarshalOne decodes a single wire delta.
func UnmarshalOne(data []byte) (Delta, error) {
	var w wireDelta
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Timestamp == nil {
		return nil, fmt.Errorf("%w: %s without timestamp", ErrMalformed, w.Op)
	}

	switch w.Op {
	case OpModify:
		if w.SegmentID == "" {
			return nil, fmt.Errorf("%w: modify without segmentId", ErrMalformed)
		}
		return Modify{
			SegmentID: w.SegmentID,
			NewText:   w.NewText,
			NewTitle:  w.NewTitle,
			Timestamp: *w.Timestamp,
		}, nil

	case OpDelete:
		if w.SegmentID == "" {
			return nil, fmt.Errorf("%w: delete without segmentId", ErrMalformed)
		}
		return Delete{SegmentID: w.SegmentID, Timestamp: *w.Timestamp}, nil

	case OpAdd:
		if len(w.Segment) == 0 || string(w.Segment) == "null" {
			return nil, fmt.Errorf("%w: add without segment", ErrMalformed)
		}
		seg, err := segment.UnmarshalSegment(w.Segment)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		var after *string
		if len(w.AfterID) > 0 {
			if err := json.Unmarshal(w.AfterID, &after); err != nil {
				return nil, fmt.Errorf("%w: afterId: %v", ErrMalformed, err)
			}
		}
		return Add{
			AfterID:   after,
			ParentID:  w.ParentID,
			Segment:   seg,
			Timestamp: *w.Timestamp,
		}, nil

	case "":
		return nil, fmt.Errorf("%w: missing op", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, w.Op)
	}
}
