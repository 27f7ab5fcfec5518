package diffview

import "sort"

// DefaultContextLines is the number of unchanged lines kept visible on each
// side of a change.
const DefaultContextLines = 5

// Region is a 1-indexed inclusive line span.
type Region struct {
	Start int
	End   int
}

// Len returns the number of lines in the region.
func (r Region) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Regions holds per-side spans.
type Regions struct {
	Old []Region
	New []Region
}

// ChangedRange is one maximal run of added/removed lines. A zero count on a
// side means nothing changed there; the start is then the anchor line the
// insertion or deletion sits at.
type ChangedRange struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
}

// ChangedRanges extracts one range per run of consecutive change lines.
// Placeholder hunks are skipped.
func ChangedRanges(hunks []*Hunk) []ChangedRange {
	var out []ChangedRange
	for _, h := range hunks {
		if h == nil {
			continue
		}
		oldNext, newNext := h.OldStart, h.NewStart
		var cur *ChangedRange
		for _, l := range h.Lines {
			if !l.IsChange() {
				if cur != nil {
					out = append(out, *cur)
					cur = nil
				}
				oldNext = l.OldNumber + 1
				newNext = l.NewNumber + 1
				continue
			}
			if cur == nil {
				cur = &ChangedRange{OldStart: oldNext, NewStart: newNext}
			}
			if l.Type == LineRemove {
				if cur.OldCount == 0 {
					cur.OldStart = l.OldNumber
				}
				cur.OldCount++
				oldNext = l.OldNumber + 1
			} else {
				if cur.NewCount == 0 {
					cur.NewStart = l.NewNumber
				}
				cur.NewCount++
				newNext = l.NewNumber + 1
			}
		}
		if cur != nil {
			out = append(out, *cur)
		}
	}
	return out
}

// VisibleRanges returns the merged context windows around every change.
func VisibleRanges(changed []ChangedRange, oldTotal, newTotal, context int) Regions {
	var oldSpans, newSpans []Region
	for _, c := range changed {
		oldSpans = append(oldSpans, span(c.OldStart, c.OldCount))
		newSpans = append(newSpans, span(c.NewStart, c.NewCount))
	}
	return Regions{
		Old: visibleSide(oldSpans, oldTotal, context),
		New: visibleSide(newSpans, newTotal, context),
	}
}

// ComputeCollapseRegions returns, per side, the unchanged spans that lie
// outside every change's context window. The output is a pure function of
// the input.
func ComputeCollapseRegions(changed []ChangedRange, oldTotal, newTotal, context int) Regions {
	vis := VisibleRanges(changed, oldTotal, newTotal, context)
	return Regions{
		Old: invert(vis.Old, oldTotal),
		New: invert(vis.New, newTotal),
	}
}

// HiddenBefore returns the size of the collapsed region that ends right
// before line, or 0.
func HiddenBefore(regions []Region, line int) int {
	for _, r := range regions {
		if r.End == line-1 {
			return r.Len()
		}
	}
	return 0
}

func span(start, count int) Region {
	if count <= 0 {
		return Region{Start: start, End: start}
	}
	return Region{Start: start, End: start + count - 1}
}

func visibleSide(spans []Region, total, context int) []Region {
	if total <= 0 {
		return nil
	}
	if context < 0 {
		context = 0
	}
	expanded := make([]Region, 0, len(spans))
	for _, s := range spans {
		r := Region{Start: max(1, s.Start-context), End: min(total, s.End+context)}
		if r.Start > r.End {
			continue
		}
		expanded = append(expanded, r)
	}
	sort.Slice(expanded, func(i, j int) bool {
		if expanded[i].Start != expanded[j].Start {
			return expanded[i].Start < expanded[j].Start
		}
		return expanded[i].End < expanded[j].End
	})
	merged := make([]Region, 0, len(expanded))
	for _, r := range expanded {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End+1 {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func invert(visible []Region, total int) []Region {
	if total <= 0 {
		return nil
	}
	var gaps []Region
	next := 1
	for _, v := range visible {
		if v.Start > next {
			gaps = append(gaps, Region{Start: next, End: v.Start - 1})
		}
		next = v.End + 1
	}
	if next <= total {
		gaps = append(gaps, Region{Start: next, End: total})
	}
	return gaps
}
