package comments

import "github.com/interpretive-systems/critique/internal/diffview"

// Anchors buckets comments by the line they are attached to. Each bucket
// keeps the order the comments were given in.
type Anchors map[Key][]Comment

// BuildAnchors indexes comments that carry a line. Comments without one
// (file or MR level) are left out.
func BuildAnchors(list []Comment) Anchors {
	a := make(Anchors)
	for _, c := range list {
		k := c.AnchorKey()
		if k.Line <= 0 {
			continue
		}
		a[k] = append(a[k], c)
	}
	return a
}

// ForLine returns the comments shown under a diff line. Additions look up
// the new side, removals the old side; context lines show new-side comments
// followed by old-side ones.
func (a Anchors) ForLine(l diffview.Line) []Comment {
	switch l.Type {
	case diffview.LineAdd:
		return a[Key{Side: diffview.SideNew, Line: l.NewNumber}]
	case diffview.LineRemove:
		return a[Key{Side: diffview.SideOld, Line: l.OldNumber}]
	}
	newSide := a[Key{Side: diffview.SideNew, Line: l.NewNumber}]
	oldSide := a[Key{Side: diffview.SideOld, Line: l.OldNumber}]
	if len(oldSide) == 0 {
		return newSide
	}
	if len(newSide) == 0 {
		return oldSide
	}
	out := make([]Comment, 0, len(newSide)+len(oldSide))
	out = append(out, newSide...)
	return append(out, oldSide...)
}

// Thread is a discussion: its root comment followed by replies.
type Thread struct {
	DiscussionID string
	Comments     []Comment
}

// Resolved reports whether every comment in the thread is resolved.
func (t Thread) Resolved() bool {
	for _, c := range t.Comments {
		if !c.Resolved {
			return false
		}
	}
	return len(t.Comments) > 0
}

// Root returns the thread's first comment without a parent.
func (t Thread) Root() Comment {
	for _, c := range t.Comments {
		if c.ParentID == 0 {
			return c
		}
	}
	return t.Comments[0]
}

// GroupThreads groups comments by discussion in order of first appearance.
// Comments without a discussion id form their own thread.
func GroupThreads(list []Comment) []Thread {
	var threads []Thread
	index := map[string]int{}
	for _, c := range list {
		if c.DiscussionID == "" {
			threads = append(threads, Thread{Comments: []Comment{c}})
			continue
		}
		i, ok := index[c.DiscussionID]
		if !ok {
			i = len(threads)
			index[c.DiscussionID] = i
			threads = append(threads, Thread{DiscussionID: c.DiscussionID})
		}
		threads[i].Comments = append(threads[i].Comments, c)
	}
	return threads
}
