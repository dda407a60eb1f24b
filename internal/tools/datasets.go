package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/contact-graph/internal/session"
	"github.com/wagnerlima/contact-graph/internal/storage"
)

// DatasetTools holds references needed by dataset management tool handlers.
type DatasetTools struct {
	Catalog *storage.Catalog
	Session *session.Session
}

// --- Input types ---

type CreateDatasetInput struct {
	Name        string `json:"name" jsonschema:"Unique dataset name (slug-friendly)"`
	Description string `json:"description,omitempty" jsonschema:"Optional dataset description"`
}

type SwitchDatasetInput struct {
	Name string `json:"name" jsonschema:"Name of the dataset to switch to"`
}

type DeleteDatasetInput struct {
	Name string `json:"name" jsonschema:"Name of the dataset to permanently delete"`
}

// --- Handlers ---

func (t *DatasetTools) ListDatasets(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	datasets, err := t.Catalog.ListDatasets()
	if err != nil {
		return toolError("Failed to list datasets: %v", err), nil, nil
	}
	return toolJSON(datasets)
}

func (t *DatasetTools) CreateDataset(_ context.Context, _ *mcp.CallToolRequest, input CreateDatasetInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" {
		return toolError("Dataset name is required"), nil, nil
	}

	ds, err := t.Catalog.CreateDataset(input.Name, input.Description)
	if err != nil {
		return toolError("Failed to create dataset: %v", err), nil, nil
	}

	// New datasets become the active one.
	if _, err := t.Session.SwitchDataset(t.Catalog, ds.Name); err != nil {
		return toolError("Dataset created but failed to switch: %v", err), nil, nil
	}

	return toolJSON(ds)
}

func (t *DatasetTools) SwitchDataset(_ context.Context, _ *mcp.CallToolRequest, input SwitchDatasetInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" {
		return toolError("Dataset name is required"), nil, nil
	}

	ds, err := t.Session.SwitchDataset(t.Catalog, input.Name)
	if err != nil {
		return toolError("Failed to switch dataset: %v", err), nil, nil
	}

	return toolJSON(ds)
}

func (t *DatasetTools) GetCurrentDataset(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	id, name, ok := t.Session.GetCurrent()
	if !ok {
		return toolText("No dataset is currently active. Use switch_dataset to select one."), nil, nil
	}

	ds, err := t.Catalog.GetDatasetByID(id)
	if err != nil {
		return toolText(fmt.Sprintf("Active dataset: %s (details unavailable)", name)), nil, nil
	}

	return toolJSON(ds)
}

func (t *DatasetTools) DeleteDataset(_ context.Context, _ *mcp.CallToolRequest, input DeleteDatasetInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" {
		return toolError("Dataset name is required"), nil, nil
	}

	_, currentName, ok := t.Session.GetCurrent()
	if ok && currentName == input.Name {
		t.Session.Clear()
	}

	if err := t.Catalog.DeleteDataset(input.Name); err != nil {
		return toolError("Failed to delete dataset: %v", err), nil, nil
	}

	return toolText(fmt.Sprintf("Dataset %q permanently deleted.", input.Name)), nil, nil
}

// --- Helpers ---

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
