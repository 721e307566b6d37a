package domain

// IndexMap is a bidirectional mapping between names and dense integer
// indices. Indices are assigned in insertion order, starting at zero, and
// are permanent: entries can never be removed or renumbered.
type IndexMap struct {
	byName  map[string]int
	byIndex []string
}

// NewIndexMap returns an empty IndexMap.
func NewIndexMap() *IndexMap {
	return &IndexMap{byName: make(map[string]int)}
}

// Add assigns the next free index to name and returns it. If the name is
// already present its existing index is returned.
func (m *IndexMap) Add(name string) int {
	if idx, ok := m.byName[name]; ok {
		return idx
	}
	idx := len(m.byIndex)
	m.byName[name] = idx
	m.byIndex = append(m.byIndex, name)
	return idx
}

// Index returns the index for name.
func (m *IndexMap) Index(name string) (int, bool) {
	idx, ok := m.byName[name]
	return idx, ok
}

// Name returns the name registered at index.
func (m *IndexMap) Name(index int) (string, bool) {
	if index < 0 || index >= len(m.byIndex) {
		return "", false
	}
	return m.byIndex[index], true
}

// Len returns the number of entries.
func (m *IndexMap) Len() int {
	return len(m.byIndex)
}

// Names returns a copy of the forward mapping, suitable for export.
func (m *IndexMap) Names() map[string]int {
	out := make(map[string]int, len(m.byName))
	for k, v := range m.byName {
		out[k] = v
	}
	return out
}
