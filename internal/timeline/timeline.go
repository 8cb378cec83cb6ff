package timeline

import (
	"sort"

	"github.com/ivlev/storyreel/internal/scene"
)

// Entry is one scene laid out on the global time axis. Intervals are
// half-open: a scene owns [Start, End).
type Entry struct {
	Scene    *scene.Scene
	Start    float64
	End      float64
	Duration float64
}

// Timeline is the derived gapless layout of a scene list. It is never
// mutated in place; callers rebuild it from the current scene list whenever
// any duration input changes.
type Timeline struct {
	Entries []Entry
	Total   float64
}

// Build lays the scenes end to end in list order (the externally visible
// playback order, not Sequence). O(n), side-effect free, handles empty and
// single-scene lists.
func Build(scenes []*scene.Scene) Timeline {
	tl := Timeline{Entries: make([]Entry, 0, len(scenes))}
	cursor := 0.0
	for _, s := range scenes {
		d := scene.ResolveDuration(s)
		tl.Entries = append(tl.Entries, Entry{
			Scene:    s,
			Start:    cursor,
			End:      cursor + d,
			Duration: d,
		})
		cursor += d
	}
	tl.Total = cursor
	return tl
}

func (tl Timeline) IsEmpty() bool {
	return len(tl.Entries) == 0
}

// Index returns the position of the entry active at instant t, or -1 when no
// entry matches (t before zero, t at or beyond Total, or empty timeline).
// Boundaries are half-open on the right, so t == entry.End selects the next
// entry.
func (tl Timeline) Index(t float64) int {
	if len(tl.Entries) == 0 || t < 0 || t >= tl.Total {
		return -1
	}
	i := sort.Search(len(tl.Entries), func(i int) bool {
		return t < tl.Entries[i].End
	})
	if i == len(tl.Entries) {
		return -1
	}
	return i
}

// At returns the entry active at instant t.
func (tl Timeline) At(t float64) (Entry, bool) {
	i := tl.Index(t)
	if i < 0 {
		return Entry{}, false
	}
	return tl.Entries[i], true
}
