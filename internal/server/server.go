package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/contact-graph/internal/session"
	"github.com/wagnerlima/contact-graph/internal/storage"
	"github.com/wagnerlima/contact-graph/internal/tools"
)

// Version is reported to MCP clients and by the version command.
const Version = "0.1.0"

// New creates a fully configured MCP server with all tools registered.
func New(cat *storage.Catalog, sess *session.Session) *mcp.Server {
	dt := &tools.DatasetTools{Catalog: cat, Session: sess}
	rt := &tools.RecordTools{Catalog: cat, Session: sess}
	qt := &tools.QueryTools{Catalog: cat, Session: sess}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "contact-graph",
		Version: Version,
	}, nil)

	// Dataset management tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_datasets",
		Description: "List all contact datasets",
	}, dt.ListDatasets)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_dataset",
		Description: "Create a new contact dataset with its own isolated database and make it active",
	}, dt.CreateDataset)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "switch_dataset",
		Description: "Switch the active dataset for the current session",
	}, dt.SwitchDataset)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_current_dataset",
		Description: "Get information about the currently active dataset",
	}, dt.GetCurrentDataset)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_dataset",
		Description: "Permanently delete a dataset and all its records (irreversible)",
	}, dt.DeleteDataset)

	// Record tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_persons",
		Description: "Add persons with their health status; Sick persons need a confirmed_time (requires active dataset)",
	}, rt.AddPersons)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_places",
		Description: "Add places with their type (requires active dataset)",
	}, rt.AddPlaces)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_visits",
		Description: "Add visits of existing persons to existing places (requires active dataset)",
	}, rt.AddVisits)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_persons",
		Description: "Delete persons and all their visits (requires active dataset)",
	}, rt.DeletePersons)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_places",
		Description: "Delete places and all visits to them (requires active dataset)",
	}, rt.DeletePlaces)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_nodes",
		Description: "Search persons and places using FTS5 full-text search (requires active dataset)",
	}, rt.SearchNodes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "read_graph",
		Description: "Read every person, place and visit of the active dataset",
	}, rt.ReadGraph)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Count persons, sick and healthy persons, places and visits of the active dataset",
	}, rt.GraphStats)

	// Contact queries
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "labels",
		Description: "List the node labels present in the graph",
	}, qt.Labels)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "possible_spreaders",
		Description: "Sick persons who, after their confirmation, visited a place a healthy person also visited after that confirmation",
	}, qt.PossibleSpreaders)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "possible_spread_counts",
		Description: "For each possible spreader, the number of (sick visit, healthy visit) pairs at the same place after confirmation",
	}, qt.PossibleSpreadCounts)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "careless_people",
		Description: "Sick persons ranked by the number of distinct places they visited",
	}, qt.CarelessPeople)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "socially_careful",
		Description: "Sick persons without a bar visit started before their confirmation",
	}, qt.SociallyCareful)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "people_to_inform",
		Description: "For each sick person, the healthy persons who shared a place with them long enough to be informed",
	}, qt.PeopleToInform)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "healthy_companions_of",
		Description: "Healthy persons reachable from a person through 2 to 6 visit edges",
	}, qt.HealthyCompanionsOf)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "top_sick_site",
		Description: "The place type most visited by sick persons after their confirmation",
	}, qt.TopSickSite)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "sick_from",
		Description: "Keep only the given names that belong to sick persons",
	}, qt.SickFrom)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "set_high_risk",
		Description: "Mark the given sick persons as HighRisk; returns the names actually changed",
	}, qt.SetHighRisk)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "contact_report",
		Description: "Run every read-only contact query against the same snapshot and return the combined report",
	}, qt.ContactReport)

	return srv
}
