// Package loader tracks progressively fetched hunks of a large file.
//
// The hunk array starts as nil placeholders. Pages of hunks are requested as
// the viewport approaches them and merged back into their original indices.
// A page is never requested twice while a request for it is in flight, and a
// failed page keeps its placeholders so the next proximity check retries it.
package loader

import (
	"fmt"

	"github.com/interpretive-systems/critique/internal/diffview"
)

// PageKey identifies a page of hunks by its index.
type PageKey int

// PageOf returns the page that holds hunk i.
func PageOf(i, pageSize int) PageKey {
	if pageSize <= 0 {
		return 0
	}
	return PageKey(i / pageSize)
}

// PageRange returns the hunk indices [start, end) covered by key in an array
// of n hunks.
func PageRange(key PageKey, pageSize, n int) (start, end int) {
	start = int(key) * pageSize
	end = start + pageSize
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	return start, end
}

// Loader owns the placeholder array for one file.
type Loader struct {
	pageSize  int
	proximity int
	hunks     []*diffview.Hunk
	inFlight  map[PageKey]bool
}

// New returns a loader fetching pageSize hunks at a time and prefetching
// proximity pages around the visible range.
func New(pageSize, proximity int) *Loader {
	if pageSize <= 0 {
		pageSize = 1
	}
	if proximity < 0 {
		proximity = 0
	}
	return &Loader{pageSize: pageSize, proximity: proximity, inFlight: map[PageKey]bool{}}
}

// Reset seeds count placeholders and forgets in-flight pages.
func (l *Loader) Reset(count int) {
	l.hunks = make([]*diffview.Hunk, count)
	l.inFlight = map[PageKey]bool{}
}

// Seed installs hunks that are already known; nil entries stay placeholders.
func (l *Loader) Seed(hunks []*diffview.Hunk) {
	for i, h := range hunks {
		if i < len(l.hunks) && h != nil {
			l.hunks[i] = h
		}
	}
}

// Hunks returns the current array. Callers must not modify it.
func (l *Loader) Hunks() []*diffview.Hunk {
	return l.hunks
}

// PageSize returns the number of hunks per page.
func (l *Loader) PageSize() int {
	return l.pageSize
}

// Request returns the pages that should be fetched for the visible hunk
// range [first, last] and marks them in flight. Pages that are already
// loaded or in flight are skipped.
func (l *Loader) Request(first, last int) []PageKey {
	n := len(l.hunks)
	if n == 0 {
		return nil
	}
	if first < 0 {
		first = 0
	}
	if last >= n {
		last = n - 1
	}
	if last < first {
		last = first
	}
	lo := int(PageOf(first, l.pageSize)) - l.proximity
	hi := int(PageOf(last, l.pageSize)) + l.proximity
	maxPage := int(PageOf(n-1, l.pageSize))
	if lo < 0 {
		lo = 0
	}
	if hi > maxPage {
		hi = maxPage
	}
	var keys []PageKey
	for p := lo; p <= hi; p++ {
		key := PageKey(p)
		if l.inFlight[key] || !l.missing(key) {
			continue
		}
		l.inFlight[key] = true
		keys = append(keys, key)
	}
	return keys
}

// Complete merges a fetched page. Only placeholder slots of the page are
// filled; loaded slots are left untouched so indices already rendered never
// move. It returns the number of slots filled.
func (l *Loader) Complete(key PageKey, hunks []diffview.Hunk) (int, error) {
	delete(l.inFlight, key)
	start, end := PageRange(key, l.pageSize, len(l.hunks))
	if start >= end {
		return 0, fmt.Errorf("page %d outside %d hunks", key, len(l.hunks))
	}
	if len(hunks) > end-start {
		return 0, fmt.Errorf("page %d: got %d hunks, page holds %d", key, len(hunks), end-start)
	}
	filled := 0
	for i := range hunks {
		slot := start + i
		if l.hunks[slot] != nil {
			continue
		}
		h := hunks[i]
		l.hunks[slot] = &h
		filled++
	}
	return filled, nil
}

// Fail releases a page after a failed fetch. Its placeholders remain.
func (l *Loader) Fail(key PageKey) {
	delete(l.inFlight, key)
}

// InFlight reports whether key has an outstanding request.
func (l *Loader) InFlight(key PageKey) bool {
	return l.inFlight[key]
}

// Pending returns the number of placeholder slots.
func (l *Loader) Pending() int {
	n := 0
	for _, h := range l.hunks {
		if h == nil {
			n++
		}
	}
	return n
}

// Loaded reports whether every slot holds a hunk.
func (l *Loader) Loaded() bool {
	return l.Pending() == 0
}

func (l *Loader) missing(key PageKey) bool {
	start, end := PageRange(key, l.pageSize, len(l.hunks))
	for i := start; i < end; i++ {
		if l.hunks[i] == nil {
			return true
		}
	}
	return false
}
