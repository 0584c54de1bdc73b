package chat

import (
	"strings"

	"github.com/folio/folio/backend/go-services/internal/document"
)

const defaultProfile = "You are the assistant on a personal portfolio site. Answer questions about the site owner, their projects and the tools they use. Keep answers short and friendly."

// SystemContext grounds the assistant with the owner profile and the
// current project titles and tool names.
func SystemContext(profile string, doc *document.Document) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = defaultProfile
	}
	var b strings.Builder
	b.WriteString(profile)
	if doc == nil {
		return b.String()
	}
	if titles := names(doc.Projects, "title", "name"); len(titles) > 0 {
		b.WriteString("\n\nProjects: ")
		b.WriteString(strings.Join(titles, ", "))
	}
	if tools := names(doc.Tools, "name", "title"); len(tools) > 0 {
		b.WriteString("\n\nTools: ")
		b.WriteString(strings.Join(tools, ", "))
	}
	return b.String()
}

func names(items []document.Item, keys ...string) []string {
	var out []string
	for _, it := range items {
		for _, k := range keys {
			if s, ok := it[k].(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
				break
			}
		}
	}
	return out
}
