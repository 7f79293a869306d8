// Package identity maps free-text human names to platform identity ids.
package identity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseTable decodes a configured JSON object of display name to id.
func ParseTable(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}, nil
	}
	table := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil, fmt.Errorf("parse identity table: %w", err)
	}
	return table, nil
}

// Resolver holds the two lookup tables: social identities used as record
// creators, and person refs used as issue assignees. Both are keyed by the
// display-name spellings the workspace is known to use.
type Resolver struct {
	creators  map[string]string
	assignees map[string]string
}

func NewResolver(creators, assignees map[string]string) *Resolver {
	r := &Resolver{
		creators:  map[string]string{},
		assignees: map[string]string{},
	}
	for name, id := range creators {
		r.creators[normalize(name)] = id
	}
	for name, id := range assignees {
		r.assignees[normalize(name)] = id
	}
	return r
}

// Creator resolves a name against the social-identity table.
func (r *Resolver) Creator(name string) (string, bool) {
	return lookup(r.creators, name)
}

// Assignee resolves a name against the person-ref table.
func (r *Resolver) Assignee(name string) (string, bool) {
	return lookup(r.assignees, name)
}

// lookup tries the literal string, then each canonical variant.
func lookup(table map[string]string, name string) (string, bool) {
	for _, candidate := range Variants(name) {
		if id, ok := table[normalize(candidate)]; ok {
			return id, true
		}
	}
	return "", false
}

// Variants returns the canonical spellings tried for a name: the literal
// input, then "First Last", "Last, First" and "Last First" permutations.
func Variants(name string) []string {
	trimmed := strings.TrimSpace(name)
	variants := []string{trimmed}
	if i := strings.Index(trimmed, ","); i >= 0 {
		last := strings.TrimSpace(trimmed[:i])
		first := strings.TrimSpace(trimmed[i+1:])
		if first != "" && last != "" {
			variants = append(variants, first+" "+last, last+" "+first)
		}
		return variants
	}
	if fields := strings.Fields(trimmed); len(fields) == 2 {
		variants = append(variants,
			fields[1]+", "+fields[0],
			fields[1]+" "+fields[0],
		)
	}
	return variants
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
