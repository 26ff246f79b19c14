// Package livefeed keeps a local copy of the guestbook list in sync with the
// event stream.
package livefeed

import (
	"sort"
	"sync"

	"portfolio/internal/events"
	"portfolio/internal/models"
)

// State is the client-side guestbook list: root entries newest first, each
// carrying its replies in thread order.
type State struct {
	mu    sync.RWMutex
	roots []models.GuestbookEntry
}

// New builds a State from a snapshot as returned by GET /api/guestbook.
func New(initial []models.GuestbookEntry) *State {
	roots := make([]models.GuestbookEntry, len(initial))
	copy(roots, initial)
	for i := range roots {
		roots[i].Replies = OrderThread(roots[i].ID, roots[i].Replies)
	}
	return &State{roots: roots}
}

// Entries returns a copy of the current roots.
func (s *State) Entries() []models.GuestbookEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.GuestbookEntry, len(s.roots))
	for i, r := range s.roots {
		r.Replies = append([]models.GuestbookEntry(nil), r.Replies...)
		r.Likes = append([]models.Like(nil), r.Likes...)
		out[i] = r
	}
	return out
}

// Apply folds one stream event into the list and reports whether anything
// changed. Duplicates and events for unknown entries are ignored.
func (s *State) Apply(ev events.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case events.TypeGuestbookNew:
		return s.addRoot(ev.Entry)
	case events.TypeGuestbookReply:
		return s.addReply(ev.ParentID, ev.Reply)
	case events.TypeGuestbookLike:
		return s.applyLike(ev.ID, ev.UserEmail, ev.Action)
	}
	return false
}

func (s *State) addRoot(entry *models.GuestbookEntry) bool {
	if entry == nil {
		return false
	}
	for _, r := range s.roots {
		if r.ID == entry.ID {
			return false
		}
	}
	s.roots = append([]models.GuestbookEntry{*entry}, s.roots...)
	return true
}

func (s *State) addReply(parentID string, reply *models.GuestbookEntry) bool {
	if reply == nil {
		return false
	}

	idx := -1
	if reply.RootID != nil {
		idx = s.rootIndex(*reply.RootID)
	}
	if idx < 0 {
		idx = s.threadOf(parentID)
	}
	if idx < 0 {
		return false
	}

	root := &s.roots[idx]
	for _, r := range root.Replies {
		if r.ID == reply.ID {
			return false
		}
	}
	root.Replies = OrderThread(root.ID, append(root.Replies, *reply))
	return true
}

func (s *State) rootIndex(id string) int {
	for i := range s.roots {
		if s.roots[i].ID == id {
			return i
		}
	}
	return -1
}

// threadOf finds the root whose thread contains id, either as the root
// itself or as one of its replies.
func (s *State) threadOf(id string) int {
	for i, root := range s.roots {
		if root.ID == id {
			return i
		}
		for _, r := range root.Replies {
			if r.ID == id {
				return i
			}
		}
	}
	return -1
}

func (s *State) applyLike(entryID, email, action string) bool {
	entry := s.find(entryID)
	if entry == nil || email == "" {
		return false
	}

	switch action {
	case events.ActionLike:
		if entry.LikedBy(email) {
			return false
		}
		// Stream likes carry only the email; no id or user record.
		n := len(entry.Likes)
		entry.Likes = append(entry.Likes[:n:n], models.Like{
			GuestbookID: entry.ID,
			User:        models.User{Email: email},
		})
		return true
	case events.ActionUnlike:
		kept := make([]models.Like, 0, len(entry.Likes))
		for _, l := range entry.Likes {
			if l.User.Email != email {
				kept = append(kept, l)
			}
		}
		changed := len(kept) != len(entry.Likes)
		entry.Likes = kept
		return changed
	}
	return false
}

func (s *State) find(id string) *models.GuestbookEntry {
	for i := range s.roots {
		if s.roots[i].ID == id {
			return &s.roots[i]
		}
		for j := range s.roots[i].Replies {
			if s.roots[i].Replies[j].ID == id {
				return &s.roots[i].Replies[j]
			}
		}
	}
	return nil
}

// OrderThread arranges the replies of rootID depth-first: each reply is
// followed by its own replies, siblings oldest first. Replies whose parent is
// not in the thread go last, oldest first.
func OrderThread(rootID string, replies []models.GuestbookEntry) []models.GuestbookEntry {
	if len(replies) == 0 {
		return replies
	}

	sorted := make([]models.GuestbookEntry, len(replies))
	copy(sorted, replies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	children := make(map[string][]int)
	for i, r := range sorted {
		if r.ParentID != nil {
			children[*r.ParentID] = append(children[*r.ParentID], i)
		}
	}

	out := make([]models.GuestbookEntry, 0, len(sorted))
	placed := make([]bool, len(sorted))

	var walk func(parent string)
	walk = func(parent string) {
		for _, i := range children[parent] {
			if placed[i] {
				continue
			}
			placed[i] = true
			out = append(out, sorted[i])
			walk(sorted[i].ID)
		}
	}
	walk(rootID)

	for i, r := range sorted {
		if !placed[i] {
			placed[i] = true
			out = append(out, r)
			// keep an orphan's own replies under it
			walk(r.ID)
		}
	}
	return out
}
