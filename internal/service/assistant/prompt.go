package assistant

import (
	"strings"

	"github.com/gridworx/helios-ai-gateway/internal/models"
)

// defaultSystemPrompt is used when tools are disabled and no custom prompt
// is configured.
const defaultSystemPrompt = "You are the Helios workspace assistant. " +
	"Answer questions about the organization's workspace clearly and concisely. " +
	"If you do not know something, say so instead of guessing."

// toolUsagePolicy is appended to every role-scoped prompt.
const toolUsagePolicy = "Always use the available tools to answer factual questions " +
	"about the organization's data or documentation. Never fabricate values, " +
	"identifiers, or counts; if a tool returns an error or no data, report that."

// roleProfile is the capability narrative for one AI role. It shapes what
// the model claims it can do; it does not enforce anything.
type roleProfile struct {
	capabilities []string
	limitations  []string
	instruction  string
}

var roleProfiles = map[string]roleProfile{
	models.AIRoleViewer: {
		capabilities: []string{
			"search and read the product documentation",
			"look up users, groups, and organizational units",
			"summarize directory data in read-only form",
		},
		limitations: []string{
			"cannot create, modify, or delete anything",
			"cannot access credentials or security settings",
		},
		instruction: "Answer questions using read-only lookups; decline any request to change data.",
	},
	models.AIRoleOperator: {
		capabilities: []string{
			"search and read the product documentation",
			"look up and cross-reference users, groups, and organizational units",
			"prepare step-by-step instructions for routine administrative tasks",
		},
		limitations: []string{
			"cannot apply changes directly; changes go through the admin console",
			"cannot access billing or security configuration",
		},
		instruction: "Help operators complete day-to-day workspace tasks; describe the exact console steps when a change is needed.",
	},
	models.AIRoleAdmin: {
		capabilities: []string{
			"search and read the product documentation",
			"look up any directory entity and aggregate across the organization",
			"explain configuration, synchronization, and integration behavior in detail",
		},
		limitations: []string{
			"cannot execute changes itself; it guides the administrator",
		},
		instruction: "Provide complete technical detail; assume the user is a workspace administrator.",
	},
}

// buildSystemPrompt picks the system prompt for a chat turn: the custom
// prompt when configured, a role-scoped tool prompt when tools are enabled,
// or the static default.
func buildSystemPrompt(cfg *models.AIConfig, pageContext string) string {
	if cfg.UseCustomPrompt && strings.TrimSpace(cfg.CustomPrompt) != "" {
		return withPageContext(cfg.CustomPrompt, pageContext)
	}
	if cfg.MCPEnabled {
		return withPageContext(buildRolePrompt(cfg.AIRole), pageContext)
	}
	return withPageContext(defaultSystemPrompt, pageContext)
}

// buildRolePrompt renders the capability narrative for a role. Unknown
// roles degrade to viewer.
func buildRolePrompt(role string) string {
	profile, ok := roleProfiles[role]
	if !ok {
		profile = roleProfiles[models.AIRoleViewer]
		role = models.AIRoleViewer
	}

	var b strings.Builder
	b.WriteString("You are the Helios workspace assistant, operating in the ")
	b.WriteString(role)
	b.WriteString(" role.\n\nYou can:\n")
	for _, c := range profile.capabilities {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\nYou cannot:\n")
	for _, l := range profile.limitations {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(profile.instruction)
	b.WriteString("\n\n")
	b.WriteString(toolUsagePolicy)
	return b.String()
}

// withPageContext appends the caller's current page context, when provided.
func withPageContext(prompt, pageContext string) string {
	if strings.TrimSpace(pageContext) == "" {
		return prompt
	}
	return prompt + "\n\nThe user is currently viewing: " + pageContext
}
