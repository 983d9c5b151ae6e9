package transformer

import (
	"fmt"
	"sort"
	"sync"
)

// Extension is a named, versioned set of transformations that is compiled into
// the binary but only merged into a catalog when requested.
type Extension struct {
	Name    string
	Version string
	// ImportPath is the Go package that registers the extension. Generated
	// programs import it to reproduce the catalog.
	ImportPath      string
	Transformations []Descriptor
}

var (
	extMu      sync.RWMutex
	extensions = map[string]Extension{}
)

// RegisterExtension makes ext available to Catalog.Load. It is meant to be
// called from an init function of the extension package.
func RegisterExtension(ext Extension) {
	extMu.Lock()
	defer extMu.Unlock()
	extensions[ext.Name] = ext
}

// Extensions lists the names of registered extensions.
func Extensions() []string {
	extMu.RLock()
	defer extMu.RUnlock()
	out := make([]string, 0, len(extensions))
	for n := range extensions {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Load installs the registered extension called name.
func (c *Catalog) Load(name string) error {
	extMu.RLock()
	ext, ok := extensions[name]
	extMu.RUnlock()
	if !ok {
		return fmt.Errorf("extension %q is not available", name)
	}
	return c.Install(ext)
}

// Install merges ext into the catalog. Either every transformation of ext is
// added or none is: descriptors are validated and checked for key clashes
// before the catalog is touched. Installing the same name and version twice is
// a no-op.
func (c *Catalog) Install(ext Extension) error {
	if ext.Name == "" {
		return fmt.Errorf("extension has no name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.installed[ext.Name]; ok {
		if prev.Version == ext.Version {
			return nil
		}
		return fmt.Errorf("extension %q already installed at version %q", ext.Name, prev.Version)
	}

	seen := make(map[string]struct{}, len(ext.Transformations))
	for i := range ext.Transformations {
		d := &ext.Transformations[i]
		if err := d.validate(); err != nil {
			return fmt.Errorf("extension %q: %w", ext.Name, err)
		}
		if _, dup := seen[d.Key]; dup {
			return fmt.Errorf("extension %q declares %q twice", ext.Name, d.Key)
		}
		seen[d.Key] = struct{}{}
		if _, exists := c.entries[d.Key]; exists {
			return fmt.Errorf("extension %q: transformation %q already registered", ext.Name, d.Key)
		}
	}
	for _, d := range ext.Transformations {
		dd := d
		c.entries[d.Key] = &dd
	}
	c.installed[ext.Name] = Extension{Name: ext.Name, Version: ext.Version, ImportPath: ext.ImportPath}
	return nil
}

// Installed returns the extensions merged into the catalog, sorted by name,
// without their transformations.
func (v View) Installed() []Extension {
	out := make([]Extension, 0, len(v.c.installed))
	for _, e := range v.c.installed {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
