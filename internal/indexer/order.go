package indexer

import (
	"strings"

	"github.com/zolll23/ragdoll/internal/extract"
)

// OrderEntities returns the per-file processing order: classes in
// inheritance order (base classes before anything that extends them),
// then constants, then methods and functions. Ordering superclasses
// first lets their finished analysis serve as context when a subclass
// or method is enriched.
//
// Inheritance is an explicit DAG over extends edges within the file;
// edges to classes outside the file are ignored. Cycles are broken by
// falling back to scan order for everything still unscheduled.
func OrderEntities(entities []extract.Entity) []extract.Entity {
	var classes, constants, rest []extract.Entity
	for _, e := range entities {
		switch e.Kind {
		case extract.ClassEntity:
			classes = append(classes, e)
		case extract.ConstEntity:
			constants = append(constants, e)
		default:
			rest = append(rest, e)
		}
	}

	ordered := make([]extract.Entity, 0, len(entities))
	ordered = append(ordered, sortClasses(classes)...)
	ordered = append(ordered, constants...)
	ordered = append(ordered, rest...)
	return ordered
}

func sortClasses(classes []extract.Entity) []extract.Entity {
	if len(classes) < 2 {
		return classes
	}

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c.Name] = i
	}

	// parents[i] holds the in-file classes class i extends.
	parents := make([][]int, len(classes))
	for i, c := range classes {
		for _, dep := range extract.Dependencies(c.Code, c.Language) {
			if dep.Relation != extract.RelationExtends {
				continue
			}
			name := dep.Name
			if j := strings.LastIndexAny(name, ".\\"); j >= 0 {
				name = name[j+1:]
			}
			if p, ok := index[name]; ok && p != i {
				parents[i] = append(parents[i], p)
			}
		}
	}

	// Kahn's in scan order; cyclic leftovers append in scan order.
	children := make([][]int, len(classes))
	indegree := make([]int, len(classes))
	for i, ps := range parents {
		for _, p := range ps {
			children[p] = append(children[p], i)
			indegree[i]++
		}
	}

	scheduled := make([]bool, len(classes))
	ordered := make([]extract.Entity, 0, len(classes))
	for {
		progressed := false
		for i := range classes {
			if scheduled[i] || indegree[i] > 0 {
				continue
			}
			scheduled[i] = true
			ordered = append(ordered, classes[i])
			for _, child := range children[i] {
				indegree[child]--
			}
			progressed = true
		}
		if !progressed {
			break
		}
	}
	for i := range classes {
		if !scheduled[i] {
			ordered = append(ordered, classes[i])
		}
	}
	return ordered
}
