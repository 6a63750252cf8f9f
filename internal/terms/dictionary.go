package terms

import (
	"sort"
	"strings"
	"sync"
)

// Relationship is the precomputed per-term metadata derived from the static
// tables. The whole table is rebuilt whenever the term set changes; there is
// no incremental update path.
type Relationship struct {
	Category      string
	Complexity    string
	Prerequisites []string
	Related       []string
}

// Dictionary owns the term → definition mapping and its derived relationship
// table. It is the single shared terminology state; all access goes through
// its own locking, callers never hold locks around it.
type Dictionary struct {
	mu            sync.RWMutex
	defs          map[string]string
	relationships map[string]Relationship
}

// NewDictionary builds a dictionary with the built-in terminology.
func NewDictionary() *Dictionary {
	d := &Dictionary{defs: defaultDefinitions()}
	d.relationships = buildRelationships(d.defs)
	return d
}

// NewDictionaryWith seeds the built-in terminology plus extra entries, used
// when restoring persisted custom terms at startup.
func NewDictionaryWith(extra map[string]string) *Dictionary {
	d := &Dictionary{defs: defaultDefinitions()}
	for term, def := range extra {
		d.defs[strings.ToLower(term)] = def
	}
	d.relationships = buildRelationships(d.defs)
	return d
}

// Definition looks up a term case-insensitively.
func (d *Dictionary) Definition(term string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.defs[strings.ToLower(term)]
	return def, ok
}

// Relationship returns the precomputed metadata for a known term.
func (d *Dictionary) Relationship(term string) (Relationship, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rel, ok := d.relationships[strings.ToLower(term)]
	return rel, ok
}

// Add inserts or replaces a term and synchronously rebuilds the relationship
// table before the write lock is released, so readers never observe a stale
// table for a mutated term set.
func (d *Dictionary) Add(term, definition string) {
	key := strings.ToLower(strings.TrimSpace(term))
	d.mu.Lock()
	defer d.mu.Unlock()
	d.defs[key] = definition
	d.relationships = buildRelationships(d.defs)
}

// Delete removes a term, reporting whether it existed. The relationship table
// is rebuilt under the same lock.
func (d *Dictionary) Delete(term string) bool {
	key := strings.ToLower(strings.TrimSpace(term))
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.defs[key]; !ok {
		return false
	}
	delete(d.defs, key)
	d.relationships = buildRelationships(d.defs)
	return true
}

// Len reports the number of known terms.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.defs)
}

// All returns a copy of the term table for the query surface.
func (d *Dictionary) All() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(d.defs))
	for term, def := range d.defs {
		out[term] = def
	}
	return out
}

// Categories groups the known terms by their derived category, sorted for
// stable output.
func (d *Dictionary) Categories() map[string][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string][]string)
	for term, rel := range d.relationships {
		out[rel.Category] = append(out[rel.Category], term)
	}
	for _, grouped := range out {
		sort.Strings(grouped)
	}
	return out
}

// Extract returns the dictionary terms whose lowercase form occurs as a
// substring of the lowercased text. No tokenization or word-boundary rules:
// multi-word terms match as contiguous substrings. Each matched term appears
// once; the result is sorted for determinism.
func (d *Dictionary) Extract(text string) []string {
	lowered := strings.ToLower(text)

	d.mu.RLock()
	defer d.mu.RUnlock()

	var found []string
	for term := range d.defs {
		if strings.Contains(lowered, term) {
			found = append(found, term)
		}
	}
	sort.Strings(found)
	return found
}

func buildRelationships(defs map[string]string) map[string]Relationship {
	groups := make(map[string][]string, len(categoryGroups))
	for _, g := range categoryGroups {
		groups[g.name] = g.terms
	}

	rels := make(map[string]Relationship, len(defs))
	for term := range defs {
		rel := Relationship{
			Category:      categorize(term),
			Complexity:    ComplexityIntermediate,
			Prerequisites: append([]string(nil), prerequisiteTable[term]...),
		}
		if c, ok := complexityTable[term]; ok {
			rel.Complexity = c
		}
		// Related terms come from the term's category group, excluding the
		// term itself and anything not currently in the dictionary.
		for _, sibling := range groups[rel.Category] {
			if sibling == term {
				continue
			}
			if _, ok := defs[sibling]; ok {
				rel.Related = append(rel.Related, sibling)
			}
		}
		rels[term] = rel
	}
	return rels
}

func categorize(term string) string {
	for _, g := range categoryGroups {
		for _, t := range g.terms {
			if t == term {
				return g.name
			}
		}
	}
	return "general"
}
