package store

import "strings"

// Analysis records store architectural roles in a fixed CamelCase
// vocabulary. Providers report the same roles in varying shapes
// (value_object, controller, "Domain Event"); normalization keeps
// stored values comparable with query filters.

var mvcRoleVocabulary = map[string]string{
	"controller": "Controller",
	"model":      "Model",
	"view":       "View",
	"service":    "Service",
	"repository": "Repository",
}

var dddRoleVocabulary = map[string]string{
	"entity":      "Entity",
	"valueobject": "ValueObject",
	"aggregate":   "Aggregate",
	"service":     "Service",
	"repository":  "Repository",
	"factory":     "Factory",
	"domainevent": "DomainEvent",
}

// NormalizeMVCRole maps a reported MVC role onto the stored vocabulary.
func NormalizeMVCRole(role string) string {
	return normalizeRole(role, mvcRoleVocabulary)
}

// NormalizeDDDRole maps a reported DDD role onto the stored vocabulary.
func NormalizeDDDRole(role string) string {
	return normalizeRole(role, dddRoleVocabulary)
}

func normalizeRole(role string, vocabulary map[string]string) string {
	key := strings.ToLower(strings.TrimSpace(role))
	for _, sep := range []string{"_", "-", " "} {
		key = strings.ReplaceAll(key, sep, "")
	}
	if key == "" || key == "none" {
		return ""
	}
	if canonical, ok := vocabulary[key]; ok {
		return canonical
	}
	return strings.TrimSpace(role)
}
