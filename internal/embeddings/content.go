package embeddings

import "strings"

// PrepareEntityContent generates the text to embed for an entity:
// the name, the analysis description, the derived keywords, and the
// fully qualified name. Queries are embedded into the same space, so
// the composition here defines what semantic search can find.
func PrepareEntityContent(name, description string, keywords []string, fqn string) string {
	var parts []string

	parts = append(parts, name)
	if description != "" {
		parts = append(parts, description)
	}
	if len(keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(keywords, ", "))
	}
	if fqn != "" && fqn != name {
		parts = append(parts, fqn)
	}

	return strings.Join(parts, "\n")
}
