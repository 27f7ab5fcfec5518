package comments

import (
	"slices"
	"strings"
	"time"

	"github.com/interpretive-systems/critique/internal/diffview"
)

// Op names the kind of optimistic mutation holding a lock.
type Op int

const (
	OpCreate Op = iota + 1
	OpDelete
	OpResolve
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpResolve:
		return "resolve"
	}
	return "none"
}

// Anchor is where the composer is attached: a row of the hunk array plus the
// side and line number a new comment will be created on.
type Anchor struct {
	HunkIndex int
	LineIndex int
	Side      diffview.Side
	Line      int
}

// Composer is the single comment input. While Submitting is set the draft is
// read-only. Parent is set when the composer replies to a discussion.
type Composer struct {
	Anchor     Anchor
	Draft      string
	Submitting bool
	TempID     int
	Parent     *Comment
}

// settlement remembers a confirmed mutation until a list requested after it
// arrives. Lists requested earlier may not reflect it yet.
type settlement struct {
	op       Op
	at       uint64
	resolved bool
}

// Store holds the comments of one file. It is owned by the review session
// and is not safe for concurrent use.
type Store struct {
	mrID     int
	path     string
	list     []Comment
	anchors  Anchors
	locks    map[int]Op
	composer *Composer
	nextTemp int

	listSeq uint64
	applied uint64
	settled map[int]settlement
}

// NewStore returns an empty store for one file of a merge request.
func NewStore(mrID int, path string) *Store {
	return &Store{
		mrID:     mrID,
		path:     path,
		anchors:  Anchors{},
		locks:    map[int]Op{},
		settled:  map[int]settlement{},
		nextTemp: -1,
	}
}

// Path returns the file the store belongs to.
func (s *Store) Path() string { return s.path }

// NextListSeq numbers a list request. Pass the number to ReplaceAt with the
// response.
func (s *Store) NextListSeq() uint64 {
	s.listSeq++
	return s.listSeq
}

// Replace installs a list that is known to be current.
func (s *Store) Replace(list []Comment) {
	s.ReplaceAt(s.NextListSeq(), list)
}

// ReplaceAt installs the remote's comment list for request seq. A response
// older than one already applied is ignored and ReplaceAt reports false.
//
// Records with a mutation in flight keep their local state: optimistic
// creations stay appended, pending deletions stay hidden and pending
// resolutions keep their flag. Mutations confirmed after seq was requested
// are kept the same way.
func (s *Store) ReplaceAt(seq uint64, list []Comment) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	for id, st := range s.settled {
		if st.at < seq {
			delete(s.settled, id)
		}
	}
	out := make([]Comment, 0, len(list))
	seen := make(map[int]bool, len(list))
	for _, c := range list {
		if seen[c.ID] {
			continue
		}
		st, settled := s.settled[c.ID]
		if settled && st.op == OpDelete {
			continue
		}
		switch s.locks[c.ID] {
		case OpDelete:
			continue
		case OpResolve:
			if local, ok := s.find(c.ID); ok {
				c.Resolved = s.list[local].Resolved
			}
		default:
			if settled && st.op == OpResolve {
				c.Resolved = st.resolved
			}
		}
		c.IsLocal = false
		c.SyncStatus = SyncSynced
		seen[c.ID] = true
		out = append(out, c)
	}
	for _, c := range s.list {
		if s.locks[c.ID] == OpCreate {
			out = append(out, c)
			continue
		}
		if st, ok := s.settled[c.ID]; ok && st.op == OpCreate && !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	s.list = out
	s.reindex()
	return true
}

// All returns a copy of the comments in client order.
func (s *Store) All() []Comment {
	return slices.Clone(s.list)
}

// Len returns the number of comments, system notes included.
func (s *Store) Len() int {
	return len(s.list)
}

// Get returns the comment with the given id.
func (s *Store) Get(id int) (Comment, bool) {
	i, ok := s.find(id)
	if !ok {
		return Comment{}, false
	}
	return s.list[i], true
}

// ForLine returns the comments anchored to a diff line.
func (s *Store) ForLine(l diffview.Line) []Comment {
	return s.anchors.ForLine(l)
}

// Threads groups the comments into discussions.
func (s *Store) Threads() []Thread {
	return GroupThreads(s.list)
}

// Locked reports whether id has a mutation in flight.
func (s *Store) Locked(id int) bool {
	_, ok := s.locks[id]
	return ok
}

// OpenComposer opens the composer at a. Any previous composer is replaced
// and its draft dropped.
func (s *Store) OpenComposer(a Anchor) {
	s.composer = &Composer{Anchor: a}
}

// OpenReply opens the composer at a as a reply to root's discussion.
func (s *Store) OpenReply(a Anchor, root Comment) {
	parent := root
	s.composer = &Composer{Anchor: a, Parent: &parent}
}

// CloseComposer discards the composer and its draft. A composer whose
// submission is in flight cannot be closed; its result closes it.
func (s *Store) CloseComposer() bool {
	if s.composer == nil || s.composer.Submitting {
		return false
	}
	s.composer = nil
	return true
}

// Composer returns the open composer, if any.
func (s *Store) Composer() (*Composer, bool) {
	return s.composer, s.composer != nil
}

// SetDraft updates the draft text. It is ignored while submitting.
func (s *Store) SetDraft(text string) {
	if s.composer == nil || s.composer.Submitting {
		return
	}
	s.composer.Draft = text
}

// BeginAdd turns the composer's draft into an optimistic comment. The record
// gets a negative id and pending status, is appended immediately and is
// locked until ConfirmAdd or RollbackAdd.
func (s *Store) BeginAdd(author string, now time.Time) (Comment, error) {
	if s.composer == nil {
		return Comment{}, &ValidationError{Reason: "no composer open"}
	}
	if s.composer.Submitting {
		return Comment{}, ErrMutationInFlight
	}
	body := strings.TrimSpace(s.composer.Draft)
	if body == "" {
		return Comment{}, &ValidationError{Reason: "empty comment body"}
	}
	a := s.composer.Anchor
	if a.Line <= 0 {
		return Comment{}, &ValidationError{Reason: "missing anchor"}
	}
	c := Comment{
		ID:             s.nextTemp,
		MRID:           s.mrID,
		AuthorUsername: author,
		Body:           body,
		FilePath:       s.path,
		CreatedAt:      now,
		UpdatedAt:      now,
		IsLocal:        true,
		SyncStatus:     SyncPending,
	}
	switch p := s.composer.Parent; {
	case p != nil:
		if p.DiscussionID == "" || p.ID <= 0 {
			return Comment{}, &ValidationError{Reason: "discussion is not synced yet"}
		}
		c.DiscussionID = p.DiscussionID
		c.ParentID = p.ID
		c.OldLine, c.NewLine = p.OldLine, p.NewLine
	case a.Side == diffview.SideNew:
		c.NewLine = a.Line
	default:
		c.OldLine = a.Line
	}
	s.nextTemp--
	s.list = append(s.list, c)
	s.locks[c.ID] = OpCreate
	s.composer.Submitting = true
	s.composer.TempID = c.ID
	s.reindex()
	return c, nil
}

// ConfirmAdd swaps the optimistic record's identity for the server's and
// closes the composer that produced it. A copy of the server record that a
// list already delivered is dropped so the id appears once. It reports false
// when the record is gone, for example after the file was reloaded.
func (s *Store) ConfirmAdd(tempID int, server Comment) bool {
	delete(s.locks, tempID)
	if s.composer != nil && s.composer.TempID == tempID {
		s.composer = nil
	}
	if _, ok := s.find(tempID); !ok {
		return false
	}
	if server.ID != tempID {
		if dup, ok := s.find(server.ID); ok {
			s.list = slices.Delete(s.list, dup, dup+1)
		}
	}
	i, _ := s.find(tempID)
	c := &s.list[i]
	c.ID = server.ID
	c.AuthorUsername = server.AuthorUsername
	c.CreatedAt = server.CreatedAt
	c.UpdatedAt = server.UpdatedAt
	if server.DiscussionID != "" {
		c.DiscussionID = server.DiscussionID
	}
	c.IsLocal = false
	c.SyncStatus = SyncSynced
	s.settled[c.ID] = settlement{op: OpCreate, at: s.listSeq}
	s.reindex()
	return true
}

// RollbackAdd removes the optimistic record. The composer stays open with
// its draft so the user can try again.
func (s *Store) RollbackAdd(tempID int) {
	delete(s.locks, tempID)
	if s.composer != nil && s.composer.TempID == tempID {
		s.composer.Submitting = false
		s.composer.TempID = 0
	}
	if i, ok := s.find(tempID); ok {
		s.list = slices.Delete(s.list, i, i+1)
		s.reindex()
	}
}

// BeginDelete removes a comment optimistically and returns it with its
// position so a failed delete can put it back.
func (s *Store) BeginDelete(id int) (Comment, int, error) {
	if s.Locked(id) {
		return Comment{}, -1, ErrMutationInFlight
	}
	i, ok := s.find(id)
	if !ok {
		return Comment{}, -1, ErrUnknownComment
	}
	c := s.list[i]
	s.list = slices.Delete(s.list, i, i+1)
	s.locks[id] = OpDelete
	s.reindex()
	return c, i, nil
}

// ConfirmDelete releases the lock of a completed delete.
func (s *Store) ConfirmDelete(id int) {
	delete(s.locks, id)
	s.settled[id] = settlement{op: OpDelete, at: s.listSeq}
}

// RollbackDelete re-inserts a comment at its old position.
func (s *Store) RollbackDelete(c Comment, index int) {
	delete(s.locks, c.ID)
	if _, ok := s.find(c.ID); ok {
		return
	}
	index = min(max(index, 0), len(s.list))
	s.list = slices.Insert(s.list, index, c)
	s.reindex()
}

// BeginResolve sets the resolved flag on every comment of a discussion and
// locks them. It returns each affected id with the flag it had before.
func (s *Store) BeginResolve(discussionID string, resolved bool) (map[int]bool, error) {
	if discussionID == "" {
		return nil, &ValidationError{Reason: "comment has no discussion"}
	}
	var idx []int
	for i, c := range s.list {
		if c.DiscussionID != discussionID {
			continue
		}
		if s.Locked(c.ID) {
			return nil, ErrMutationInFlight
		}
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return nil, ErrUnknownComment
	}
	prior := make(map[int]bool, len(idx))
	for _, i := range idx {
		prior[s.list[i].ID] = s.list[i].Resolved
		s.list[i].Resolved = resolved
		s.locks[s.list[i].ID] = OpResolve
	}
	s.reindex()
	return prior, nil
}

// ConfirmResolve releases the locks taken by BeginResolve.
func (s *Store) ConfirmResolve(prior map[int]bool) {
	for id := range prior {
		delete(s.locks, id)
		if i, ok := s.find(id); ok {
			s.settled[id] = settlement{op: OpResolve, at: s.listSeq, resolved: s.list[i].Resolved}
		}
	}
}

// RollbackResolve puts back the flag each comment had before BeginResolve
// and marks them failed.
func (s *Store) RollbackResolve(prior map[int]bool) {
	for id, was := range prior {
		delete(s.locks, id)
		if i, ok := s.find(id); ok {
			s.list[i].Resolved = was
			s.list[i].SyncStatus = SyncFailed
		}
	}
	s.reindex()
}

func (s *Store) find(id int) (int, bool) {
	for i, c := range s.list {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Store) reindex() {
	s.anchors = BuildAnchors(s.list)
}
