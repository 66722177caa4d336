package assistant

import (
	"encoding/json"

	"github.com/gridworx/helios-ai-gateway/internal/models"
	"github.com/gridworx/helios-ai-gateway/internal/service/gateway"
)

// Tool categories gated by the per-organization tool-category map.
const (
	categoryKnowledge = "knowledge"
	categoryDataQuery = "data_query"
)

// dataQueryToolNames is the fixed set of read-only directory tools. Tool
// calls with these names are dispatched to the data-query executor with the
// organization id; everything else goes to the knowledge executor.
var dataQueryToolNames = map[string]struct{}{
	"list_users":     {},
	"get_user":       {},
	"list_groups":    {},
	"get_group":      {},
	"list_org_units": {},
	"count_users":    {},
}

// isDataQueryTool reports whether a tool name belongs to the data-query set.
func isDataQueryTool(name string) bool {
	_, ok := dataQueryToolNames[name]
	return ok
}

func schema(s string) json.RawMessage {
	return json.RawMessage(s)
}

// knowledgeTools is the fixed documentation tool set.
func knowledgeTools() []gateway.Tool {
	return []gateway.Tool{
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "search_documentation",
				Description: "Search the product documentation for pages matching a query.",
				Parameters: schema(`{"type":"object","properties":{` +
					`"query":{"type":"string","description":"Search terms"}},` +
					`"required":["query"]}`),
			},
		},
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "get_documentation_page",
				Description: "Retrieve the full content of a documentation page by its path.",
				Parameters: schema(`{"type":"object","properties":{` +
					`"path":{"type":"string","description":"Page path returned by search_documentation"}},` +
					`"required":["path"]}`),
			},
		},
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "list_documentation_sections",
				Description: "List the top-level sections of the product documentation.",
				Parameters:  schema(`{"type":"object","properties":{}}`),
			},
		},
	}
}

// dataQueryTools is the fixed read-only directory tool set.
func dataQueryTools() []gateway.Tool {
	return []gateway.Tool{
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "list_users",
				Description: "List users in the organization's synced directory, optionally filtered.",
				Parameters: schema(`{"type":"object","properties":{` +
					`"query":{"type":"string","description":"Substring match on name or email"},` +
					`"limit":{"type":"integer","description":"Maximum results, default 20"}}}`),
			},
		},
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "get_user",
				Description: "Retrieve one user by primary email address.",
				Parameters: schema(`{"type":"object","properties":{` +
					`"email":{"type":"string","description":"Primary email address"}},` +
					`"required":["email"]}`),
			},
		},
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "list_groups",
				Description: "List groups in the organization's synced directory.",
				Parameters: schema(`{"type":"object","properties":{` +
					`"query":{"type":"string","description":"Substring match on group name or email"},` +
					`"limit":{"type":"integer","description":"Maximum results, default 20"}}}`),
			},
		},
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "get_group",
				Description: "Retrieve one group and its member summary by group email.",
				Parameters: schema(`{"type":"object","properties":{` +
					`"email":{"type":"string","description":"Group email address"}},` +
					`"required":["email"]}`),
			},
		},
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "list_org_units",
				Description: "List the organization's organizational units.",
				Parameters:  schema(`{"type":"object","properties":{}}`),
			},
		},
		{
			Type: "function",
			Function: gateway.ToolFunction{
				Name:        "count_users",
				Description: "Count users, optionally restricted to an organizational unit or status.",
				Parameters: schema(`{"type":"object","properties":{` +
					`"org_unit":{"type":"string","description":"Organizational unit path"},` +
					`"status":{"type":"string","enum":["active","suspended"],"description":"User status filter"}}}`),
			},
		},
	}
}

// availableTools builds the tool list for a request: the knowledge set
// unioned with the data-query set, each gated by the organization's
// tool-category map. An absent category defaults to enabled. Returns nil
// when tools are disabled altogether.
func availableTools(cfg *models.AIConfig) []gateway.Tool {
	if !cfg.MCPEnabled {
		return nil
	}

	var tools []gateway.Tool
	if categoryEnabled(cfg, categoryKnowledge) {
		tools = append(tools, knowledgeTools()...)
	}
	if categoryEnabled(cfg, categoryDataQuery) {
		tools = append(tools, dataQueryTools()...)
	}
	return tools
}

func categoryEnabled(cfg *models.AIConfig, category string) bool {
	if cfg.ToolCategories == nil {
		return true
	}
	v, ok := cfg.ToolCategories[category]
	if !ok {
		return true
	}
	enabled, ok := v.(bool)
	if !ok {
		return true
	}
	return enabled
}
