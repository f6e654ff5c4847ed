package graph

import "github.com/gobundle/gobundle/internal/ids"

// Chunk is one output file, per spec §3/§4.4.
type Chunk struct {
	ID               string
	Entry            ids.ModuleId
	Modules          map[ids.ModuleId]bool
	IsUserDefinedEntry bool
	IsDynamicEntry     bool
	ExportMode       ExportMode

	Filename string

	// BeforeItems are the synthesized header import/export-from
	// statements; AfterItems are the synthesized trailer export
	// statements. Both are filled in by the finalizer.
	BeforeItems []string
	AfterItems  []string

	// SplitPointModuleToChunk maps a dynamic-import target module to the
	// id of the chunk it ended up in. The finalizer does not read it: it
	// rewrites import() string literals from chunk membership directly.
	SplitPointModuleToChunk map[ids.ModuleId]string
}

// NewChunk allocates an empty chunk rooted at entry.
func NewChunk(id string, entry ids.ModuleId) *Chunk {
	return &Chunk{
		ID:                      id,
		Entry:                   entry,
		Modules:                 make(map[ids.ModuleId]bool),
		SplitPointModuleToChunk: make(map[ids.ModuleId]string),
	}
}

// Contains reports whether m belongs to this chunk.
func (c *Chunk) Contains(m ids.ModuleId) bool { return c.Modules[m] }

// Add inserts m into the chunk's module set.
func (c *Chunk) Add(m ids.ModuleId) { c.Modules[m] = true }

// Remove deletes m from the chunk's module set (used by the splitter's
// dynamic-entry dedup rule).
func (c *Chunk) Remove(m ids.ModuleId) { delete(c.Modules, m) }
