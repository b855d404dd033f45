package speaker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kirved/tabscribe/internal/session"
)

// UnknownSpeaker is emitted when no candidate lookup resolves a name.
const UnknownSpeaker = "Unknown Speaker"

// Mutation is a snapshot of a changed node in the meeting page's content
// tree, relayed by the injected agent.
type Mutation struct {
	Classes    []string          `json:"classes"`
	Attributes map[string]string `json:"attributes"`
	Text       string            `json:"text"`
	At         time.Time         `json:"at"`
}

// Source yields the lazy, restartable stream of mutations for one tab.
type Source interface {
	Subscribe(ctx context.Context) <-chan Mutation
}

// Event records an accepted active-speaker change.
type Event struct {
	Speaker string    `json:"speaker"`
	At      time.Time `json:"at"`
}

// Profile is the platform-specific part of tracking: the active-speaker
// predicate and the ordered name lookups. The field name "text" selects
// the node's text content instead of an attribute.
type Profile struct {
	Match      func(Mutation) bool
	NameFields []string
}

// ProfileFor returns the tracking profile for a platform. Unknown
// platforms get a permissive generic profile.
func ProfileFor(platform session.Platform) Profile {
	switch platform {
	case session.PlatformGoogleMeet:
		return Profile{
			Match:      matchAny("speaking", "data-speaking"),
			NameFields: []string{"data-participant-name", "data-self-name", "aria-label", "text"},
		}
	case session.PlatformZoom:
		return Profile{
			Match:      matchAny("speaker-active", "data-active-speaker"),
			NameFields: []string{"aria-label", "data-name", "title", "text"},
		}
	default:
		return Profile{
			Match:      matchAny("speaking", "data-speaking"),
			NameFields: []string{"aria-label", "text"},
		}
	}
}

func matchAny(class, attr string) func(Mutation) bool {
	return func(m Mutation) bool {
		for _, c := range m.Classes {
			if c == class {
				return true
			}
		}
		_, ok := m.Attributes[attr]
		return ok
	}
}

// Tracker consumes a mutation stream, resolves display names, and keeps
// the append-only speaker history for the session. It runs from page load
// independent of recording state, and is advisory: it never blocks,
// retries, or errors.
type Tracker struct {
	source   Source
	profile  Profile
	onChange func(Event)

	mu      sync.Mutex
	history []Event
	current string
}

// New creates a tracker. onChange, if non-nil, is invoked synchronously
// with each accepted event to update the visible current-speaker surface.
func New(source Source, profile Profile, onChange func(Event)) *Tracker {
	return &Tracker{source: source, profile: profile, onChange: onChange}
}

// Run consumes mutations until the context is cancelled or the source
// closes its stream.
func (t *Tracker) Run(ctx context.Context) {
	ch := t.source.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case mut, ok := <-ch:
			if !ok {
				return
			}
			t.Observe(mut)
		}
	}
}

// Observe processes one mutation: qualifying mutations resolve to a name,
// and a name change (only) is recorded as an Event. A marker flickering
// without a name change produces nothing.
func (t *Tracker) Observe(mut Mutation) {
	if t.profile.Match != nil && !t.profile.Match(mut) {
		return
	}

	name := t.resolve(mut)

	t.mu.Lock()
	if name == t.current {
		t.mu.Unlock()
		return
	}
	at := mut.At
	if at.IsZero() {
		at = time.Now()
	}
	event := Event{Speaker: name, At: at}
	t.current = name
	t.history = append(t.history, event)
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(event)
	}
}

func (t *Tracker) resolve(mut Mutation) string {
	for _, field := range t.profile.NameFields {
		var value string
		if field == "text" {
			value = mut.Text
		} else {
			value = mut.Attributes[field]
		}
		if name := strings.TrimSpace(value); name != "" {
			return name
		}
	}
	return UnknownSpeaker
}

// Current returns the most recently resolved speaker name.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// History returns a copy of the speaker events observed so far.
func (t *Tracker) History() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.history))
	copy(out, t.history)
	return out
}
