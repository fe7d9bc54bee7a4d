package workspace

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Collection is one ordered, mutex-guarded list of entities in the mirror.
//
// Every wholesale replacement (a reload or Clear) advances the epoch.
// Completions of remote calls compare the epoch they captured so that a
// response for a list that has since been replaced is dropped.
type Collection[T any] struct {
	mu    sync.Mutex
	items []T
	epoch uint64

	idOf  func(T) uuid.UUID
	setID func(*T, uuid.UUID)
	less  func(a, b T) bool
}

// NewCollection creates an empty collection ordered by less.
func NewCollection[T any](idOf func(T) uuid.UUID, setID func(*T, uuid.UUID), less func(a, b T) bool) *Collection[T] {
	return &Collection[T]{idOf: idOf, setID: setID, less: less}
}

// WithID returns a copy of item carrying id.
func (c *Collection[T]) WithID(item T, id uuid.UUID) T {
	c.setID(&item, id)
	return item
}

// Items returns a copy of the current items in order.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Epoch returns the current epoch.
func (c *Collection[T]) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Get returns the item with the given id.
func (c *Collection[T]) Get(id uuid.UUID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Replace swaps in a freshly fetched list and returns the new epoch.
func (c *Collection[T]) Replace(items []T) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.Clone(items)
	c.sort()
	c.epoch++
	return c.epoch
}

// ReplaceAt is Replace guarded by an epoch captured earlier. It reports
// whether the list was replaced.
func (c *Collection[T]) ReplaceAt(epoch uint64, items []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	c.items = slices.Clone(items)
	c.sort()
	c.epoch++
	return true
}

// Clear empties the collection and returns the new epoch.
func (c *Collection[T]) Clear() uint64 {
	return c.Replace(nil)
}

// Insert adds an item and returns the epoch it was inserted under.
func (c *Collection[T]) Insert(item T) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	c.sort()
	return c.epoch
}

// Update applies fn to the item with the given id. It returns the item as it
// was before fn ran and the epoch, or false if the item is absent.
func (c *Collection[T]) Update(id uuid.UUID, fn func(*T)) (T, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	i := c.index(id)
	if i < 0 {
		return zero, c.epoch, false
	}
	before := c.items[i]
	fn(&c.items[i])
	c.sort()
	return before, c.epoch, true
}

// Remove deletes the item with the given id and returns it with the epoch.
func (c *Collection[T]) Remove(id uuid.UUID) (T, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	i := c.index(id)
	if i < 0 {
		return zero, c.epoch, false
	}
	removed := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	return removed, c.epoch, true
}

// UpdateAt applies fn to the item with the given id if the epoch still
// matches.
func (c *Collection[T]) UpdateAt(epoch uint64, id uuid.UUID, fn func(*T)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	i := c.index(id)
	if i < 0 {
		return false
	}
	fn(&c.items[i])
	c.sort()
	return true
}

// SwapAt replaces the item with the given id by item, if the epoch still
// matches. Used to turn a placeholder into the server's entity.
func (c *Collection[T]) SwapAt(epoch uint64, id uuid.UUID, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items[i] = item
	c.sort()
	return true
}

// PutAt writes item back under its id if the epoch still matches: an absent
// item is reinserted, a present one overwritten. Used to undo updates and
// deletes.
func (c *Collection[T]) PutAt(epoch uint64, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	if i := c.index(c.idOf(item)); i >= 0 {
		c.items[i] = item
	} else {
		c.items = append(c.items, item)
	}
	c.sort()
	return true
}

// RemoveAt deletes the item with the given id if the epoch still matches.
func (c *Collection[T]) RemoveAt(epoch uint64, id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	return true
}

// Mutate runs fn over the whole list under the lock and returns the epoch.
func (c *Collection[T]) Mutate(fn func(items []T)) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.items)
	c.sort()
	return c.epoch
}

func (c *Collection[T]) index(id uuid.UUID) int {
	return slices.IndexFunc(c.items, func(item T) bool { return c.idOf(item) == id })
}

func (c *Collection[T]) sort() {
	if c.less == nil {
		return
	}
	slices.SortStableFunc(c.items, func(a, b T) int {
		switch {
		case c.less(a, b):
			return -1
		case c.less(b, a):
			return 1
		}
		return 0
	})
}
