// Package layer provides an in-memory graphics layer.
package layer

import (
	"context"
	"sync"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// Notifier receives a snapshot of the layer after every change.
type Notifier func(ctx context.Context, sessionID string, graphics []domain.Graphic) error

// Layer implements ports.GraphicsLayer in memory.
type Layer struct {
	sessionID string
	notify    Notifier

	mu       sync.RWMutex
	graphics []domain.Graphic
}

// New creates an empty layer. notify may be nil.
func New(sessionID string, notify Notifier) *Layer {
	return &Layer{sessionID: sessionID, notify: notify}
}

// Add appends a graphic.
func (l *Layer) Add(ctx context.Context, g domain.Graphic) error {
	l.mu.Lock()
	l.graphics = append(l.graphics, g)
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	return l.changed(ctx, snapshot)
}

// RemoveAll clears the layer.
func (l *Layer) RemoveAll(ctx context.Context) error {
	l.mu.Lock()
	l.graphics = nil
	l.mu.Unlock()

	return l.changed(ctx, []domain.Graphic{})
}

// Graphics returns a copy of the current graphics.
func (l *Layer) Graphics() []domain.Graphic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Layer) snapshotLocked() []domain.Graphic {
	out := make([]domain.Graphic, len(l.graphics))
	copy(out, l.graphics)
	return out
}

func (l *Layer) changed(ctx context.Context, snapshot []domain.Graphic) error {
	if l.notify == nil {
		return nil
	}
	return l.notify(ctx, l.sessionID, snapshot)
}
