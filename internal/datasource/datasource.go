// Package datasource is the connector registry. A connector kind registers a
// Descriptor (capability manifest plus factory) from its package init; the
// engine loads rows by kind without knowing the concrete backend.
//
// Importing datasource/all enables every built-in kind.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"sort"
	"sync"

	"datascout/internal/config"
	"datascout/internal/sampling"
	"datascout/pkg/records"
)

// ErrUnknownKind is returned for a kind nobody registered.
var ErrUnknownKind = errors.New("unknown data source kind")

// Source is a byte stream a connector parses, such as a local file or an HTTP
// download. Open may be called more than once.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Field describes one connector parameter.
type Field struct {
	Key      string            `json:"-"`
	Name     string            `json:"name"`
	Type     string            `json:"type"` // string, number, boolean, option or file
	Required bool              `json:"required"`
	Default  any               `json:"default"`
	Options  map[string]string `json:"options,omitempty"`
	Help     string            `json:"help,omitempty"`
}

// Request tells a connector how much of the source to return.
type Request struct {
	UseSample bool
	Technique sampling.Technique
	Budget    sampling.Budget
	// Rand drives random sampling; nil uses a fresh generator.
	Rand *rand.Rand
}

// Connector loads records.
type Connector interface {
	Load(ctx context.Context, req Request) ([]records.Record, error)
}

// Factory builds a connector from its parameters.
type Factory func(params config.Options) (Connector, error)

// Descriptor is the registry entry of one kind.
type Descriptor struct {
	Title  string
	Fields []Field
	// Techniques lists the sampling techniques the connector implements. Nil
	// means all of them.
	Techniques []sampling.Technique
	New        Factory
}

var (
	mu    sync.RWMutex
	kinds = map[string]Descriptor{}
)

// Register registers (or replaces) the descriptor of kind. It is typically
// called from connector packages' init functions.
func Register(kind string, d Descriptor) {
	if d.New == nil {
		panic(fmt.Sprintf("datasource: kind %q registered without a factory", kind))
	}
	mu.Lock()
	defer mu.Unlock()
	kinds[kind] = d
}

// Lookup returns the descriptor of kind.
func Lookup(kind string) (Descriptor, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := kinds[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return d, nil
}

// Kinds returns the registered kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ManifestEntry is the front-end view of one kind.
type ManifestEntry struct {
	Title      string               `json:"title"`
	Fields     map[string]Field     `json:"fields"`
	Techniques []sampling.Technique `json:"sampling_techniques"`
}

// Manifest lists the parameters and sampling techniques of every kind.
func Manifest() map[string]ManifestEntry {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]ManifestEntry, len(kinds))
	for k, d := range kinds {
		fields := make(map[string]Field, len(d.Fields))
		for _, f := range d.Fields {
			fields[f.Key] = f
		}
		techs := d.Techniques
		if techs == nil {
			techs = sampling.All
		}
		out[k] = ManifestEntry{Title: d.Title, Fields: fields, Techniques: techs}
	}
	return out
}

// Supported returns the sampling techniques of kind, nil meaning all. Unknown
// kinds place no constraint.
func Supported(kind string) []sampling.Technique {
	d, err := Lookup(kind)
	if err != nil {
		return nil
	}
	return d.Techniques
}

// Load builds the connector for kind and loads rows from it. Required
// parameters are checked and defaults filled in before the factory runs.
func Load(ctx context.Context, kind string, params config.Options, req Request) ([]records.Record, error) {
	d, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	p := make(config.Options, len(params)+len(d.Fields))
	for k, v := range params {
		p[k] = v
	}
	for _, f := range d.Fields {
		if p.Has(f.Key) {
			continue
		}
		if f.Required {
			return nil, fmt.Errorf("%s: missing required parameter %q", kind, f.Key)
		}
		if f.Default != nil {
			p[f.Key] = f.Default
		}
	}
	conn, err := d.New(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	req.Technique = req.Technique.OrDefault()
	rows, err := conn.Load(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if req.UseSample {
		log.Printf("datasource: %s sample technique=%s budget=%s rows=%d", kind, req.Technique, Describe(req.Budget), len(rows))
	}
	return rows, nil
}
