package domain

import (
	"sort"
	"strings"
)

// Species is one accepted taxon from the plot inventory.
type Species struct {
	Family string
	Name   string
}

// SortSpecies orders the inventory alphabetically by species name in place.
// Downstream processing, summary rows and per-species files all follow this
// order.
func SortSpecies(list []Species) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

// RedList maps an accepted species name to its IUCN Red List category.
type RedList map[string]string

// Category returns the Red List category for name. Taxa absent from the
// list, or present with a blank category cell, return nil.
func (r RedList) Category(name string) *string {
	category, ok := r[name]
	if !ok {
		return nil
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil
	}
	return &category
}
