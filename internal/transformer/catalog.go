package transformer

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog maps transformation keys to descriptors. Registration is
// append-only. Pipeline executions read the catalog through View, which holds
// the read lock for the whole execution; Install takes the write lock, so an
// extension is never merged while a pipeline is resolving or running.
type Catalog struct {
	mu        sync.RWMutex
	entries   map[string]*Descriptor
	installed map[string]Extension
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entries:   make(map[string]*Descriptor),
		installed: make(map[string]Extension),
	}
}

// Default is the process-wide catalog the built-in transformations register
// into.
var Default = NewCatalog()

// Register adds d. Registering an existing key is an error.
func (c *Catalog) Register(d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[d.Key]; ok {
		return fmt.Errorf("transformation %q already registered", d.Key)
	}
	dd := d
	c.entries[d.Key] = &dd
	return nil
}

// MustRegister is Register for package init functions.
func (c *Catalog) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := c.Register(d); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the descriptor for key.
func (c *Catalog) Resolve(key string) (*Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(key)
}

func (c *Catalog) lookup(key string) (*Descriptor, error) {
	d, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return d, nil
}

// View is a read-locked handle on a catalog, valid only inside Catalog.View.
type View struct{ c *Catalog }

// Resolve looks up key without taking the lock again.
func (v View) Resolve(key string) (*Descriptor, error) { return v.c.lookup(key) }

// View runs fn while holding the read lock. fn must not call methods of the
// catalog that lock; nested lookups go through the View.
func (c *Catalog) View(fn func(View) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(View{c: c})
}

// Keys returns the registered keys in sorted order.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ListEntry is the front-end view of one descriptor.
type ListEntry struct {
	Title  string `json:"title"`
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
	Flags  Flags  `json:"flags"`
}

// List returns {key: {title, key, fields}} for every entry.
func (c *Catalog) List() map[string]ListEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]ListEntry, len(c.entries))
	for k, d := range c.entries {
		fields := d.Fields
		if fields == nil {
			fields = Fields{}
		}
		out[k] = ListEntry{Title: d.Title, Key: d.Key, Fields: fields, Flags: d.Flags}
	}
	return out
}
