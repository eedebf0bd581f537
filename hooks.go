package hubmap

import (
	"sync"

	"github.com/agentstation/hubmap/pkg/catalog"
)

// CategoryLoadedHook is called once when a source category finishes loading.
// Hooks run synchronously on the loading goroutine.
type CategoryLoadedHook func(category catalog.Category, items []catalog.Item)

// hooks manages event callbacks for catalog loading
type hooks struct {
	mu               sync.RWMutex
	onCategoryLoaded []CategoryLoadedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnCategoryLoaded registers a callback for when a category finishes loading
func (h *hooks) OnCategoryLoaded(fn CategoryLoadedHook) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCategoryLoaded = append(h.onCategoryLoaded, fn)
}

// triggerCategoryLoaded runs every registered hook for a published category
func (h *hooks) triggerCategoryLoaded(category catalog.Category, items []catalog.Item) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, hook := range h.onCategoryLoaded {
		hook(category, items)
	}
}
