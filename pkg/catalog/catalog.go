// Package catalog holds the per-server capability snapshot consulted by the
// query router: tools, resources, prompt templates, connect latency, and the
// load counter that grows with every successful tool call.
package catalog

import (
	"sort"
	"sync"
)

const (
	// LoadStep is added to a server's load after each successful call.
	LoadStep = 1.0
	// MaxLoad caps the load counter.
	MaxLoad = 100.0
)

// ServerInfo is the capability record for one connected server.
type ServerInfo struct {
	Tools     []ToolSpec                `json:"tools"`
	Resources []ResourceSpec            `json:"resources"`
	Prompts   []PromptSpec              `json:"prompts"`
	Templates map[string]PromptTemplate `json:"promptTemplates"`
	LatencyMs float64                   `json:"latencyMs"`
	Load      float64                   `json:"load"`
}

// Tool returns the tool with the given name.
func (s ServerInfo) Tool(name string) (ToolSpec, bool) {
	for _, t := range s.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolSpec{}, false
}

// Prompt returns the prompt spec with the given name.
func (s ServerInfo) Prompt(name string) (PromptSpec, bool) {
	for _, p := range s.Prompts {
		if p.Name == name {
			return p, true
		}
	}
	return PromptSpec{}, false
}

// Catalog owns the ServerInfo records for every connected server. After the
// connect phase only the load field changes, and only through RecordCall.
type Catalog struct {
	mu      sync.RWMutex
	servers map[string]*ServerInfo
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{servers: make(map[string]*ServerInfo)}
}

// Register stores info under name, replacing any previous record.
func (c *Catalog) Register(name string, info ServerInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info.Templates == nil {
		info.Templates = map[string]PromptTemplate{}
	}
	c.servers[name] = &info
}

// Remove deletes the record for name.
func (c *Catalog) Remove(name string) {
	c.mu.Lock()
	delete(c.servers, name)
	c.mu.Unlock()
}

// Get returns a copy of the record for name.
func (c *Catalog) Get(name string) (ServerInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.servers[name]
	if !ok {
		return ServerInfo{}, false
	}
	return *info, true
}

// Has reports whether name is cataloged.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.servers[name]
	return ok
}

// Names returns the cataloged server names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.servers))
	for name := range c.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of cataloged servers.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.servers)
}

// Snapshot copies every record. The slices inside each ServerInfo are shared
// with the catalog and must be treated as read-only.
func (c *Catalog) Snapshot() map[string]ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]ServerInfo, len(c.servers))
	for name, info := range c.servers {
		out[name] = *info
	}
	return out
}

// RecordCall bumps the load of name by LoadStep, saturating at MaxLoad, and
// returns the new value. Unknown names are ignored.
func (c *Catalog) RecordCall(name string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.servers[name]
	if !ok {
		return 0, false
	}
	info.Load = min(info.Load+LoadStep, MaxLoad)
	return info.Load, true
}
