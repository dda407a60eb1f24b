package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/contact-graph/internal/models"
	"github.com/wagnerlima/contact-graph/internal/session"
	"github.com/wagnerlima/contact-graph/internal/storage"
)

// RecordTools holds references needed by the record tool handlers.
type RecordTools struct {
	Catalog *storage.Catalog
	Session *session.Session
}

// --- Input types ---

type AddPersonsInput struct {
	Persons []PersonInput `json:"persons" jsonschema:"Array of persons to add"`
}

type PersonInput struct {
	Name          string `json:"name" jsonschema:"Unique person name"`
	HealthStatus  string `json:"health_status" jsonschema:"Healthy, Sick or HighRisk"`
	ConfirmedTime string `json:"confirmed_time,omitempty" jsonschema:"RFC 3339 time the person was confirmed sick (required for Sick, forbidden otherwise)"`
}

type AddPlacesInput struct {
	Places []PlaceInput `json:"places" jsonschema:"Array of places to add"`
}

type PlaceInput struct {
	Name string `json:"name" jsonschema:"Unique place name"`
	Type string `json:"type" jsonschema:"Place type (e.g., Bar, Shop, Sport)"`
}

type AddVisitsInput struct {
	Visits []VisitInput `json:"visits" jsonschema:"Array of visits to add"`
}

type VisitInput struct {
	Person    string `json:"person" jsonschema:"Name of the visiting person"`
	Place     string `json:"place" jsonschema:"Name of the visited place"`
	StartTime string `json:"start_time" jsonschema:"RFC 3339 start of the visit"`
	EndTime   string `json:"end_time" jsonschema:"RFC 3339 end of the visit"`
}

type DeleteNamesInput struct {
	Names []string `json:"names" jsonschema:"Names of the records to delete"`
}

type SearchNodesInput struct {
	Query string `json:"query" jsonschema:"Search query over person names, place names and place types (supports FTS5 syntax: AND, OR, NOT, prefix*)"`
}

// --- Handlers ---

func (t *RecordTools) requireDataset() (*storage.DatasetStore, *mcp.CallToolResult) {
	ds := t.Session.DatasetStore()
	if ds == nil {
		return nil, toolError("No active dataset. Use switch_dataset to select one.")
	}
	return ds, nil
}

// changed drops the cached graph and bumps the dataset's updated_at.
func (t *RecordTools) changed() {
	t.Session.Invalidate()
	if _, name, ok := t.Session.GetCurrent(); ok {
		t.Catalog.Touch(name)
	}
}

func (t *RecordTools) AddPersons(_ context.Context, _ *mcp.CallToolRequest, input AddPersonsInput) (*mcp.CallToolResult, any, error) {
	ds, errResult := t.requireDataset()
	if errResult != nil {
		return errResult, nil, nil
	}

	persons := make([]models.Person, len(input.Persons))
	for i, p := range input.Persons {
		persons[i] = models.Person{Name: p.Name, HealthStatus: models.HealthStatus(p.HealthStatus)}
		if p.ConfirmedTime != "" {
			ct, err := parseInputTime("confirmed_time", p.ConfirmedTime)
			if err != nil {
				return toolError("Person %q: %v", p.Name, err), nil, nil
			}
			persons[i].ConfirmedTime = &ct
		}
	}

	created, err := ds.CreatePersons(persons)
	if err != nil {
		return toolError("Failed to add persons: %v", err), nil, nil
	}
	t.changed()

	return toolJSON(created)
}

func (t *RecordTools) AddPlaces(_ context.Context, _ *mcp.CallToolRequest, input AddPlacesInput) (*mcp.CallToolResult, any, error) {
	ds, errResult := t.requireDataset()
	if errResult != nil {
		return errResult, nil, nil
	}

	places := make([]models.Place, len(input.Places))
	for i, p := range input.Places {
		places[i] = models.Place{Name: p.Name, Type: p.Type}
	}

	created, err := ds.CreatePlaces(places)
	if err != nil {
		return toolError("Failed to add places: %v", err), nil, nil
	}
	t.changed()

	return toolJSON(created)
}

func (t *RecordTools) AddVisits(_ context.Context, _ *mcp.CallToolRequest, input AddVisitsInput) (*mcp.CallToolResult, any, error) {
	ds, errResult := t.requireDataset()
	if errResult != nil {
		return errResult, nil, nil
	}

	visits := make([]models.Visit, len(input.Visits))
	for i, v := range input.Visits {
		start, err := parseInputTime("start_time", v.StartTime)
		if err != nil {
			return toolError("Visit %s->%s: %v", v.Person, v.Place, err), nil, nil
		}
		end, err := parseInputTime("end_time", v.EndTime)
		if err != nil {
			return toolError("Visit %s->%s: %v", v.Person, v.Place, err), nil, nil
		}
		visits[i] = models.Visit{Person: v.Person, Place: v.Place, StartTime: start, EndTime: end}
	}

	created, err := ds.CreateVisits(visits)
	if err != nil {
		return toolError("Failed to add visits: %v", err), nil, nil
	}
	t.changed()

	return toolJSON(created)
}

func (t *RecordTools) DeletePersons(_ context.Context, _ *mcp.CallToolRequest, input DeleteNamesInput) (*mcp.CallToolResult, any, error) {
	ds, errResult := t.requireDataset()
	if errResult != nil {
		return errResult, nil, nil
	}

	count, err := ds.DeletePersons(input.Names)
	if err != nil {
		return toolError("Failed to delete persons: %v", err), nil, nil
	}
	t.changed()

	return toolText(fmt.Sprintf("Deleted %d persons and their visits.", count)), nil, nil
}

func (t *RecordTools) DeletePlaces(_ context.Context, _ *mcp.CallToolRequest, input DeleteNamesInput) (*mcp.CallToolResult, any, error) {
	ds, errResult := t.requireDataset()
	if errResult != nil {
		return errResult, nil, nil
	}

	count, err := ds.DeletePlaces(input.Names)
	if err != nil {
		return toolError("Failed to delete places: %v", err), nil, nil
	}
	t.changed()

	return toolText(fmt.Sprintf("Deleted %d places and their visits.", count)), nil, nil
}

func (t *RecordTools) SearchNodes(_ context.Context, _ *mcp.CallToolRequest, input SearchNodesInput) (*mcp.CallToolResult, any, error) {
	ds, errResult := t.requireDataset()
	if errResult != nil {
		return errResult, nil, nil
	}
	if input.Query == "" {
		return toolError("Search query is required"), nil, nil
	}

	res, err := ds.Search(input.Query)
	if err != nil {
		return toolError("Search failed: %v", err), nil, nil
	}

	return toolJSON(res)
}

func (t *RecordTools) ReadGraph(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	ds, errResult := t.requireDataset()
	if errResult != nil {
		return errResult, nil, nil
	}

	g, err := ds.ReadGraph()
	if err != nil {
		return toolError("Failed to read graph: %v", err), nil, nil
	}

	return toolJSON(g)
}

func (t *RecordTools) GraphStats(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	eng, err := t.Session.Engine()
	if err != nil {
		return toolError("%v", err), nil, nil
	}
	return toolJSON(eng.Stats())
}

func parseInputTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC 3339 time: %w", field, err)
	}
	return t, nil
}
