package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixcelsafe/pixcelsafe/internal/models"
)

var (
	ErrNotFound        = errors.New("item not found")
	ErrInFlight        = errors.New("enrichment already in progress")
	ErrAlreadyEnriched = errors.New("item already enriched")
)

// Catalog is the authoritative in-memory collection of items.
// Every exported method is atomic with respect to the others.
type Catalog struct {
	mu        sync.RWMutex
	items     map[string]*models.Item
	order     []string
	deleted   map[string]struct{}
	listeners []func()
	now       func() time.Time
}

func New() *Catalog {
	return &Catalog{
		items:   make(map[string]*models.Item),
		deleted: make(map[string]struct{}),
		now:     time.Now,
	}
}

// OnChange registers fn to run after every successful mutation.
// Listeners run outside the lock and may read the catalog.
func (c *Catalog) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Catalog) notify() {
	c.mu.RLock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Insert appends items in the given order. Items without an ID get a fresh
// UUID; items whose ID is present or was deleted are skipped. A stored item
// is either uploaded or, when it carries metadata, enriched.
func (c *Catalog) Insert(items []models.Item) []models.Item {
	c.mu.Lock()
	inserted := make([]models.Item, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if _, exists := c.items[item.ID]; exists {
			continue
		}
		if _, gone := c.deleted[item.ID]; gone {
			continue
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = c.now()
		}
		if item.Status != models.StatusEnriched || item.Metadata == nil {
			item.Status = models.StatusUploaded
			item.Metadata = nil
		}
		stored := item.Clone()
		c.items[item.ID] = &stored
		c.order = append(c.order, item.ID)
		inserted = append(inserted, stored.Clone())
	}
	c.mu.Unlock()

	if len(inserted) > 0 {
		c.notify()
	}
	return inserted
}

// Delete removes the item and reports whether it was present
func (c *Catalog) Delete(id string) bool {
	c.mu.Lock()
	_, exists := c.items[id]
	if exists {
		delete(c.items, id)
		c.deleted[id] = struct{}{}
		for i, v := range c.order {
			if v == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()

	if exists {
		c.notify()
	}
	return exists
}

// Update applies fn to a copy of the item and stores a copy of the result,
// so nothing fn assigned stays reachable from outside. It is a
// no-op returning false when the item no longer exists. ID, name, payload and
// creation time are immutable and restored after fn runs.
func (c *Catalog) Update(id string, fn func(*models.Item)) bool {
	c.mu.Lock()
	current, exists := c.items[id]
	if !exists {
		c.mu.Unlock()
		return false
	}
	next := current.Clone()
	fn(&next)
	next.ID = current.ID
	next.Name = current.Name
	next.Payload = current.Payload
	next.CreatedAt = current.CreatedAt
	if next.Status != models.StatusEnriched {
		next.Metadata = nil
	}
	if next.Status == models.StatusEnriched && next.Metadata == nil {
		// reject a partial update rather than break the metadata invariant
		c.mu.Unlock()
		return false
	}
	stored := next.Clone()
	c.items[id] = &stored
	c.mu.Unlock()

	c.notify()
	return true
}

// BeginEnrichment moves an uploaded item to processing. The check and the
// transition happen under one lock, so at most one caller is admitted.
func (c *Catalog) BeginEnrichment(id string) error {
	c.mu.Lock()
	item, exists := c.items[id]
	if !exists {
		c.mu.Unlock()
		return ErrNotFound
	}
	switch item.Status {
	case models.StatusProcessing:
		c.mu.Unlock()
		return ErrInFlight
	case models.StatusEnriched:
		c.mu.Unlock()
		return ErrAlreadyEnriched
	}
	next := item.Clone()
	next.Status = models.StatusProcessing
	next.Attempts++
	c.items[id] = &next
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Catalog) Get(id string) (models.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, exists := c.items[id]
	if !exists {
		return models.Item{}, false
	}
	return item.Clone(), true
}

// Snapshot returns copies of all items in insertion order
func (c *Catalog) Snapshot() []models.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]models.Item, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.items[id].Clone())
	}
	return result
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
