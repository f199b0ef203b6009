// Package task owns the in-flight task registry, the per-task listener state
// machine and quota admission. The registry is injected everywhere it is
// needed; there are no package level singletons.
package task

import (
	"sync"

	"github.com/google/uuid"
)

// sameDirGroup is a cohort of sibling tasks delivering into one shared
// destination folder. Entries live in the registry's arena and are only
// touched under the registry lock.
type sameDirGroup struct {
	name      string
	total     int
	joined    int
	members   map[string]struct{}
	finalized bool
}

// Registry is the live set of in-flight tasks plus the same-dir group arena.
// One mutex covers both so admission counts and group membership stay
// mutually consistent.
type Registry struct {
	mu     sync.Mutex
	tasks  map[string]*Listener
	groups map[string]*sameDirGroup
}

func NewRegistry() *Registry {
	return &Registry{
		tasks:  make(map[string]*Listener),
		groups: make(map[string]*sameDirGroup),
	}
}

func (r *Registry) Add(l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[l.GID()] = l
}

// AddWithin inserts l only while the in-flight limits still hold. The count
// and the insert happen under one lock acquisition so concurrent dispatches
// cannot both pass the check before either registers. A zero limit disables
// that dimension. The returned counts are taken before the insert.
func (r *Registry) AddWithin(l *Listener, maxGlobal, maxUser int) (ok bool, global, user int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	global = len(r.tasks)
	for _, t := range r.tasks {
		if t.UserID == l.UserID {
			user++
		}
	}
	if maxGlobal > 0 && global >= maxGlobal {
		return false, global, user
	}
	if maxUser > 0 && user >= maxUser {
		return false, global, user
	}
	r.tasks[l.GID()] = l
	return true, global, user
}

func (r *Registry) Remove(gid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, gid)
}

func (r *Registry) Get(gid string) *Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[gid]
}

func (r *Registry) All() []*Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*Listener, 0, len(r.tasks))
	for _, l := range r.tasks {
		list = append(list, l)
	}
	return list
}

// Counts returns the global in-flight count and the count owned by userID,
// read under one lock acquisition.
func (r *Registry) Counts(userID int64) (global, user int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	global = len(r.tasks)
	for _, l := range r.tasks {
		if l.UserID == userID {
			user++
		}
	}
	return global, user
}

// Cancel requests cancellation of the task with the given gid. Cancelling an
// unknown or already-terminal task is a no-op.
func (r *Registry) Cancel(gid string) bool {
	r.mu.Lock()
	l := r.tasks[gid]
	r.mu.Unlock()
	if l == nil {
		return false
	}
	l.Cancel()
	return true
}

// CancelByUser cancels every in-flight task owned by userID and returns how
// many were signalled.
func (r *Registry) CancelByUser(userID int64) int {
	var owned []*Listener
	r.mu.Lock()
	for _, l := range r.tasks {
		if l.UserID == userID {
			owned = append(owned, l)
		}
	}
	r.mu.Unlock()

	for _, l := range owned {
		l.Cancel()
	}
	return len(owned)
}

// NewGroup allocates a same-dir group with the given folder name and
// expected member total, returning its opaque handle.
func (r *Registry) NewGroup(name string, total int) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[id] = &sameDirGroup{
		name:    name,
		total:   total,
		members: make(map[string]struct{}),
	}
	return id
}

// GroupName returns the destination folder name for a group handle, or ""
// for an unknown handle.
func (r *Registry) GroupName(groupID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[groupID]; ok {
		return g.name
	}
	return ""
}

func (r *Registry) JoinGroup(groupID, gid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return
	}
	g.members[gid] = struct{}{}
	g.joined++
}

// LeaveGroup removes gid from the group's member set. It reports whether the
// removal emptied the set with every expected member accounted for; the
// group is finalized at most once, even under concurrent removals, and its
// arena entry is reclaimed on finalization.
func (r *Registry) LeaveGroup(groupID, gid string) (finalize bool, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return false, ""
	}
	delete(g.members, gid)
	if len(g.members) == 0 && g.joined >= g.total && !g.finalized {
		g.finalized = true
		delete(r.groups, groupID)
		return true, g.name
	}
	return false, g.name
}
