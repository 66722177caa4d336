package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// docPage is one entry of the built-in documentation index.
type docPage struct {
	Path    string `json:"path"`
	Section string `json:"section"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// docIndex is a compact embedded documentation set. Deployments that sync
// the full documentation replace these handlers via Register.
var docIndex = []docPage{
	{
		Path:    "getting-started/overview",
		Section: "Getting Started",
		Title:   "Platform Overview",
		Content: "Helios synchronizes users, groups, and organizational units from Google Workspace or Microsoft 365 and exposes them for management, signature campaigns, and reporting.",
	},
	{
		Path:    "directory/users",
		Section: "Directory",
		Title:   "Managing Users",
		Content: "Synced users are read-only mirrors of the identity provider. Custom fields and labels can be attached without modifying the upstream directory.",
	},
	{
		Path:    "directory/groups",
		Section: "Directory",
		Title:   "Groups and Org Units",
		Content: "Groups and organizational units follow the provider hierarchy. Membership changes propagate on the next synchronization cycle.",
	},
	{
		Path:    "assistant/configuration",
		Section: "AI Assistant",
		Title:   "Configuring the Assistant",
		Content: "Administrators configure the model endpoint, an optional fallback endpoint, per-minute and per-day budgets, and the assistant role under Settings, AI Assistant.",
	},
}

// RegisterKnowledgeHandlers installs the built-in documentation tools.
func RegisterKnowledgeHandlers(r *Registry) {
	r.Register("search_documentation", searchDocumentation)
	r.Register("get_documentation_page", getDocumentationPage)
	r.Register("list_documentation_sections", listDocumentationSections)
}

func searchDocumentation(_ context.Context, _ uuid.UUID, params map[string]interface{}) (string, error) {
	query, _ := params["query"].(string)
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return `{"error":"query is required"}`, nil
	}

	type hit struct {
		Path  string `json:"path"`
		Title string `json:"title"`
	}
	var hits []hit
	for _, p := range docIndex {
		if strings.Contains(strings.ToLower(p.Title), query) ||
			strings.Contains(strings.ToLower(p.Content), query) {
			hits = append(hits, hit{Path: p.Path, Title: p.Title})
		}
	}

	out, err := json.Marshal(map[string]interface{}{"results": hits})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func getDocumentationPage(_ context.Context, _ uuid.UUID, params map[string]interface{}) (string, error) {
	path, _ := params["path"].(string)
	for _, p := range docIndex {
		if p.Path == path {
			out, err := json.Marshal(p)
			if err != nil {
				return "", err
			}
			return string(out), nil
		}
	}
	return `{"error":"page not found: ` + path + `"}`, nil
}

func listDocumentationSections(_ context.Context, _ uuid.UUID, _ map[string]interface{}) (string, error) {
	seen := make(map[string]bool)
	var sections []string
	for _, p := range docIndex {
		if !seen[p.Section] {
			seen[p.Section] = true
			sections = append(sections, p.Section)
		}
	}

	out, err := json.Marshal(map[string]interface{}{"sections": sections})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
