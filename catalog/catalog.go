// Package catalog is the in-memory, thread-safe store of celestial
// objects: the single writer surface for derived positions and the
// subscription hub the API and engine hang off.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stellarworks/universe-simulator/model"
)

// Sentinel errors surfaced to API error mapping.
var (
	ErrNotFound    = errors.New("object not found")
	ErrDuplicateID = errors.New("object ID already exists")
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventObjectAdded EventType = iota
	EventObjectUpdated
	EventObjectRemoved
)

// Event is emitted to subscribers on catalog changes. Object is a copy;
// mutating it does not touch the store.
type Event struct {
	Type   EventType
	Object model.CelestialObject
}

type subscriber struct {
	id int
	fn func(Event)
}

// Catalog is an in-memory object store guarded by a read-write mutex.
// Subscriber callbacks always run outside the lock on snapshot copies.
type Catalog struct {
	mu      sync.RWMutex
	objects map[string]*model.CelestialObject

	subs   []subscriber
	nextID int
}

// New constructs an empty catalog.
func New() *Catalog {
	return &Catalog{
		objects: make(map[string]*model.CelestialObject),
	}
}

// Add inserts a new object. The ID must be unique and non-empty.
func (c *Catalog) Add(obj *model.CelestialObject) error {
	if obj.ID == "" {
		return fmt.Errorf("add object: empty ID")
	}

	c.mu.Lock()
	if _, exists := c.objects[obj.ID]; exists {
		c.mu.Unlock()
		return fmt.Errorf("add object: %w: %q", ErrDuplicateID, obj.ID)
	}
	stored := *obj
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	c.objects[obj.ID] = &stored
	event := Event{Type: EventObjectAdded, Object: stored}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	publish(subs, event)
	return nil
}

// Get returns a copy of the object with the given ID.
func (c *Catalog) Get(id string) (model.CelestialObject, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	obj, ok := c.objects[id]
	if !ok {
		return model.CelestialObject{}, fmt.Errorf("get object %q: %w", id, ErrNotFound)
	}
	return *obj, nil
}

// List returns a snapshot of all objects ordered by ID.
func (c *Catalog) List() []model.CelestialObject {
	c.mu.RLock()
	res := make([]model.CelestialObject, 0, len(c.objects))
	for _, obj := range c.objects {
		res = append(res, *obj)
	}
	c.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of stored objects.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// UpdatePosition stores a newly derived position for an object and
// notifies subscribers. The catalog is the only writer of derived
// position state.
func (c *Catalog) UpdatePosition(id string, pos model.Position, distancePc float64) error {
	c.mu.Lock()
	obj, ok := c.objects[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("update position %q: %w", id, ErrNotFound)
	}
	obj.Position = pos
	obj.DistancePc = distancePc
	obj.UpdatedAt = time.Now().UTC()
	event := Event{Type: EventObjectUpdated, Object: *obj}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	publish(subs, event)
	return nil
}

// Remove deletes an object.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	obj, ok := c.objects[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("remove object %q: %w", id, ErrNotFound)
	}
	delete(c.objects, id)
	event := Event{Type: EventObjectRemoved, Object: *obj}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	publish(subs, event)
	return nil
}

// Clear removes every object without emitting per-object events; used
// by ingest refresh before re-seeding.
func (c *Catalog) Clear() {
	c.mu.Lock()
	c.objects = make(map[string]*model.CelestialObject)
	c.mu.Unlock()
}

// Subscribe registers a callback for catalog events and returns an
// unsubscribe function.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// subscribersLocked copies the subscriber list for notification outside
// the lock. Caller must hold c.mu.
func (c *Catalog) subscribersLocked() []subscriber {
	return append([]subscriber{}, c.subs...)
}

func publish(subs []subscriber, event Event) {
	for _, s := range subs {
		s.fn(event)
	}
}
