package tool

import "sync"

// Catalog is the registry of available tool definitions. Registration is
// expected during startup; afterward the catalog is read-mostly and safe for
// concurrent lookup from multiple task engines.
//
// Tools can additionally be grouped into named capability groups so upstream
// layers can filter the exposed tool set by mode; the catalog itself does not
// enforce groups.
type Catalog struct {
	mu     sync.RWMutex
	defs   map[string]Definition
	order  []string
	groups map[string][]string
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		defs:   make(map[string]Definition),
		groups: make(map[string][]string),
	}
}

// Register stores a definition by name. Registering a name twice replaces the
// previous definition (last write wins) while keeping its listing position.
func (c *Catalog) Register(def Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.defs[def.Name]; !exists {
		c.order = append(c.order, def.Name)
	}
	c.defs[def.Name] = def
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[name]
	return def, ok
}

// List returns all definitions in registration order.
func (c *Catalog) List() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Definition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.defs[name])
	}
	return out
}

// Names returns all registered tool names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// AddToGroup assigns tool names to a named capability group. Unknown names
// are recorded as-is; group membership is advisory.
func (c *Catalog) AddToGroup(group string, names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[group] = append(c.groups[group], names...)
}

// Group returns the definitions assigned to a group, skipping names that are
// not (or no longer) registered.
func (c *Catalog) Group(group string) []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Definition
	for _, name := range c.groups[group] {
		if def, ok := c.defs[name]; ok {
			out = append(out, def)
		}
	}
	return out
}

// Groups returns the names of all capability groups.
func (c *Catalog) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.groups))
	for name := range c.groups {
		out = append(out, name)
	}
	return out
}
