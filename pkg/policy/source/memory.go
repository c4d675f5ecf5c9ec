package source

import (
	"context"

	"mercator-hq/callisto/pkg/policy/module"
)

// MemorySource serves module definitions held in memory.
type MemorySource struct {
	defs []module.ModuleDef
}

// NewMemorySource creates an in-memory module source.
func NewMemorySource(defs ...module.ModuleDef) *MemorySource {
	return &MemorySource{defs: defs}
}

// Load returns a copy of the stored definitions.
func (s *MemorySource) Load(ctx context.Context) ([]module.ModuleDef, error) {
	defs := make([]module.ModuleDef, len(s.defs))
	copy(defs, s.defs)
	return defs, nil
}

// SetDefs replaces the stored definitions.
func (s *MemorySource) SetDefs(defs []module.ModuleDef) {
	s.defs = defs
}
