package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/contact-graph/internal/models"
	"github.com/wagnerlima/contact-graph/internal/query"
	"github.com/wagnerlima/contact-graph/internal/session"
	"github.com/wagnerlima/contact-graph/internal/storage"
)

// QueryTools holds references needed by the contact query tool handlers.
type QueryTools struct {
	Catalog *storage.Catalog
	Session *session.Session
}

// --- Input types ---

type PersonNameInput struct {
	Name string `json:"name" jsonschema:"Name of the person to start from"`
}

type NamesInput struct {
	Names []string `json:"names" jsonschema:"Candidate person names"`
}

// --- Handlers ---

func (t *QueryTools) requireEngine() (*query.Engine, *mcp.CallToolResult) {
	eng, err := t.Session.Engine()
	if err != nil {
		return nil, toolError("%v", err)
	}
	return eng, nil
}

func (t *QueryTools) Labels(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	return toolJSON(eng.Labels())
}

func (t *QueryTools) PossibleSpreaders(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	return toolJSON(eng.PossibleSpreaders())
}

func (t *QueryTools) PossibleSpreadCounts(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	return toolJSON(eng.PossibleSpreadCounts())
}

func (t *QueryTools) CarelessPeople(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	return toolJSON(eng.CarelessPeople())
}

func (t *QueryTools) SociallyCareful(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	return toolJSON(eng.SociallyCareful())
}

func (t *QueryTools) PeopleToInform(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	return toolJSON(eng.PeopleToInform())
}

func (t *QueryTools) HealthyCompanionsOf(_ context.Context, _ *mcp.CallToolRequest, input PersonNameInput) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	if input.Name == "" {
		return toolError("Person name is required"), nil, nil
	}

	companions, err := eng.HealthyCompanionsOf(input.Name)
	if err != nil {
		return toolError("Failed to find companions: %v", err), nil, nil
	}
	return toolJSON(companions)
}

func (t *QueryTools) TopSickSite(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}

	site, err := eng.TopSickSite()
	if err != nil {
		return toolError("No top sick site: %v", err), nil, nil
	}
	return toolJSON(site)
}

func (t *QueryTools) SickFrom(_ context.Context, _ *mcp.CallToolRequest, input NamesInput) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	return toolJSON(eng.SickFrom(input.Names))
}

// SetHighRisk promotes the named sick persons in memory and then in the
// dataset database. If the database write fails the cached graph is dropped
// so the next query reloads what was actually stored.
func (t *QueryTools) SetHighRisk(_ context.Context, _ *mcp.CallToolRequest, input NamesInput) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}
	ds := t.Session.DatasetStore()
	if ds == nil {
		return toolError("No active dataset. Use switch_dataset to select one."), nil, nil
	}

	changed, err := eng.SetHighRisk(query.NamedRisk(input.Names...))
	if err != nil {
		return toolError("Failed to set high risk: %v", err), nil, nil
	}
	if len(changed) > 0 {
		if _, err := ds.UpdateHealthStatus(changed, models.HighRisk, nil); err != nil {
			t.Session.Invalidate()
			return toolError("Failed to persist high risk status: %v", err), nil, nil
		}
		if _, name, ok := t.Session.GetCurrent(); ok {
			t.Catalog.Touch(name)
		}
	}

	return toolJSON(changed)
}

func (t *QueryTools) ContactReport(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, errResult := t.requireEngine()
	if errResult != nil {
		return errResult, nil, nil
	}

	report, err := eng.Report(ctx)
	if err != nil {
		return toolError("Failed to build report: %v", err), nil, nil
	}
	return toolJSON(report)
}

