package parsers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Catalog is the in-memory parser set, written through to a Store on every
// change.
type Catalog struct {
	mu     sync.RWMutex
	store  Store
	doc    Document
	loaded bool
	logger *slog.Logger
}

// NewCatalog creates an empty catalog over store. Call Load to populate it.
func NewCatalog(store Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{store: store, doc: Document{}, logger: logger}
}

// Store returns the backing store.
func (c *Catalog) Store() Store { return c.store }

// Loaded reports whether the catalog has been loaded from its store.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Load replaces the in-memory set with the stored document.
func (c *Catalog) Load(ctx context.Context) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.doc = doc
	c.loaded = true
	c.mu.Unlock()
	c.logger.Info("parsers loaded", "backend", c.store.Name(), "count", len(doc))
	return nil
}

// List returns every parser sorted by name.
func (c *Catalog) List() []Parser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Parser, 0, len(c.doc))
	for _, name := range c.doc.Names() {
		out = append(out, c.doc[name])
	}
	return out
}

// Get returns the named parser.
func (c *Catalog) Get(name string) (Parser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.doc[strings.TrimSpace(name)]
	if !ok {
		return Parser{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Add validates and stores a new parser.
func (c *Catalog) Add(ctx context.Context, p Parser) (Parser, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return Parser{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.doc[p.Name]; ok {
		return Parser{}, fmt.Errorf("%w: %s", ErrExists, p.Name)
	}
	return p, c.commit(ctx, func(doc Document) { doc[p.Name] = p })
}

// Update replaces an existing parser.
func (c *Catalog) Update(ctx context.Context, p Parser) (Parser, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return Parser{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.doc[p.Name]; !ok {
		return Parser{}, fmt.Errorf("%w: %s", ErrNotFound, p.Name)
	}
	return p, c.commit(ctx, func(doc Document) { doc[p.Name] = p })
}

// Delete removes a parser.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.doc[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c.commit(ctx, func(doc Document) { delete(doc, name) })
}

// commit applies change to a copy, saves it and swaps it in only when the
// save succeeded. Callers hold c.mu.
func (c *Catalog) commit(ctx context.Context, change func(Document)) error {
	next := c.doc.Clone()
	change(next)
	if err := c.store.Save(ctx, next); err != nil {
		c.logger.Error("failed to save parsers", "backend", c.store.Name(), "error", err)
		return err
	}
	c.doc = next
	return nil
}

// Types returns the distinct parser types in use, sorted.
func (c *Catalog) Types() []Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[Type]bool)
	for _, p := range c.doc {
		seen[p.Type] = true
	}
	out := make([]Type, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClientLink builds the shareable page link for a parser. The id parameter
// is the number of parsers sharing its app id.
func (c *Catalog) ClientLink(base, name string) (string, error) {
	p, err := c.Get(name)
	if err != nil {
		return "", err
	}

	c.mu.RLock()
	shared := 0
	for _, other := range c.doc {
		if other.AppID == p.AppID {
			shared++
		}
	}
	c.mu.RUnlock()

	u, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	q := url.Values{}
	q.Set("parser", p.Name)
	q.Set("client", "true")
	q.Set("id", strconv.Itoa(shared))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
