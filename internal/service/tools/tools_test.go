package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("echo", func(_ context.Context, _ uuid.UUID, params map[string]interface{}) (string, error) {
		text, _ := params["text"].(string)
		return text, nil
	})

	result, err := r.Execute(context.Background(), "echo", uuid.New(), map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", result)
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	result, err := r.Execute(context.Background(), "nope", uuid.New(), nil)
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(result), &parsed))
	assert.Equal(t, "tool not available: nope", parsed["error"])
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("a", func(_ context.Context, _ uuid.UUID, _ map[string]interface{}) (string, error) { return "", nil })
	r.Register("b", func(_ context.Context, _ uuid.UUID, _ map[string]interface{}) (string, error) { return "", nil })

	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
}

func TestSearchDocumentation(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	RegisterKnowledgeHandlers(r)

	result, err := r.Execute(context.Background(), "search_documentation", uuid.New(),
		map[string]interface{}{"query": "fallback"})
	require.NoError(t, err)

	var parsed struct {
		Results []struct {
			Path  string `json:"path"`
			Title string `json:"title"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &parsed))
	require.NotEmpty(t, parsed.Results)
	assert.Equal(t, "assistant/configuration", parsed.Results[0].Path)
}

func TestSearchDocumentationMissingQuery(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	RegisterKnowledgeHandlers(r)

	result, err := r.Execute(context.Background(), "search_documentation", uuid.New(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Contains(t, result, "query is required")
}

func TestGetDocumentationPage(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	RegisterKnowledgeHandlers(r)

	result, err := r.Execute(context.Background(), "get_documentation_page", uuid.New(),
		map[string]interface{}{"path": "directory/users"})
	require.NoError(t, err)

	var page struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &page))
	assert.Equal(t, "Managing Users", page.Title)
	assert.NotEmpty(t, page.Content)
}

func TestGetDocumentationPageNotFound(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	RegisterKnowledgeHandlers(r)

	result, err := r.Execute(context.Background(), "get_documentation_page", uuid.New(),
		map[string]interface{}{"path": "missing/page"})
	require.NoError(t, err)
	assert.Contains(t, result, "page not found")
}

func TestListDocumentationSections(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	RegisterKnowledgeHandlers(r)

	result, err := r.Execute(context.Background(), "list_documentation_sections", uuid.New(), nil)
	require.NoError(t, err)

	var parsed struct {
		Sections []string `json:"sections"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &parsed))
	assert.Contains(t, parsed.Sections, "Directory")
	assert.Contains(t, parsed.Sections, "AI Assistant")
}
