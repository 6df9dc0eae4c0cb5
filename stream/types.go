package stream

import "sort"

// Item is one priced entry inside a frame. All fields are integers; callers
// with fractional prices scale to a fixed-point representation first.
type Item struct {
	ID       int64
	Price    int64
	Quantity int64
}

// Snapshot is one ordered frame: a timestamp and the items observed at that
// instant.
type Snapshot struct {
	Timestamp int64
	Items     []Item
}

// sortedItems returns a copy of items ordered by ascending ID. The copy keeps
// the encoder side-effect free on caller-owned slices; the stable sort keeps
// duplicate IDs in their original relative order so the roundtrip is exact.
func sortedItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}
