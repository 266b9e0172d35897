package timeline

import (
	"github.com/forPelevin/transcut/internal/types"
	"github.com/google/uuid"
)

// Library is the media arena clips point into by id.
type Library struct {
	items map[string]types.MediaItem
	order []string
}

func NewLibrary() *Library {
	return &Library{items: map[string]types.MediaItem{}}
}

// Add stores m, assigning an id if it has none, and returns the stored item.
func (l *Library) Add(m types.MediaItem) types.MediaItem {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if _, ok := l.items[m.ID]; !ok {
		l.order = append(l.order, m.ID)
	}
	l.items[m.ID] = m
	return m
}

func (l *Library) Get(id string) (types.MediaItem, bool) {
	m, ok := l.items[id]
	return m, ok
}

// Remove drops a media item. Clips that reference it stay on the timeline
// and resolve as missing.
func (l *Library) Remove(id string) bool {
	if _, ok := l.items[id]; !ok {
		return false
	}
	delete(l.items, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns items in insertion order.
func (l *Library) List() []types.MediaItem {
	out := make([]types.MediaItem, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.items[id])
	}
	return out
}

func (l *Library) Len() int { return len(l.order) }
