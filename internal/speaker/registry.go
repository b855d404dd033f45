package speaker

import "sync"

// Registry routes posted mutation records to the feed of the tab they came
// from. The session manager registers a feed when a meeting is detected and
// removes it when the tab closes.
type Registry struct {
	mu    sync.Mutex
	feeds map[int]*Feed
}

func NewRegistry() *Registry {
	return &Registry{feeds: make(map[int]*Feed)}
}

// Register creates and tracks a feed for the tab, replacing any previous
// one. The replaced feed is closed so its tracker stops.
func (r *Registry) Register(tabID int) *Feed {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.feeds[tabID]; ok {
		old.Close()
	}
	feed := NewFeed()
	r.feeds[tabID] = feed
	return feed
}

// Remove closes and forgets the tab's feed.
func (r *Registry) Remove(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if feed, ok := r.feeds[tabID]; ok {
		feed.Close()
		delete(r.feeds, tabID)
	}
}

// Push queues a mutation on the tab's feed. It reports whether the tab had
// a registered feed.
func (r *Registry) Push(tabID int, mut Mutation) bool {
	r.mu.Lock()
	feed, ok := r.feeds[tabID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	feed.Push(mut)
	return true
}
