package models

import "time"

// HealthStatus is the health state recorded for a Person.
type HealthStatus string

const (
	Healthy  HealthStatus = "Healthy"
	Sick     HealthStatus = "Sick"
	HighRisk HealthStatus = "HighRisk"
)

// Valid reports whether s is one of the known statuses.
func (s HealthStatus) Valid() bool {
	switch s {
	case Healthy, Sick, HighRisk:
		return true
	}
	return false
}

// Node kinds, as reported by labels.
const (
	LabelPerson = "Person"
	LabelPlace  = "Place"
)

// Dataset represents a contact dataset entry in the catalog database.
type Dataset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DBPath      string `json:"db_path"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Person is a node of the contact graph. ConfirmedTime is set only while
// HealthStatus is Sick.
type Person struct {
	Name          string       `json:"name" yaml:"name" validate:"required"`
	HealthStatus  HealthStatus `json:"health_status" yaml:"health_status" validate:"required,oneof=Healthy Sick HighRisk"`
	ConfirmedTime *time.Time   `json:"confirmed_time,omitempty" yaml:"confirmed_time,omitempty"`
}

// IsSick reports whether the person is confirmed sick.
func (p Person) IsSick() bool { return p.HealthStatus == Sick }

// IsHealthy reports whether the person is healthy.
func (p Person) IsHealthy() bool { return p.HealthStatus == Healthy }

// Place is a node of the contact graph.
type Place struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	Type string `json:"type" yaml:"type" validate:"required"`
}

// Visit is an edge from a Person to a Place. The same pair may be linked by
// any number of visits.
type Visit struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Person    string    `json:"person" yaml:"person" validate:"required"`
	Place     string    `json:"place" yaml:"place" validate:"required"`
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	EndTime   time.Time `json:"end_time" yaml:"end_time"`
}

// Duration returns the length of the visit.
func (v Visit) Duration() time.Duration {
	return v.EndTime.Sub(v.StartTime)
}

// ContactGraph is a full set of records, as delivered by a loader or read
// back from a dataset database.
type ContactGraph struct {
	Persons []Person `json:"persons" yaml:"persons"`
	Places  []Place  `json:"places" yaml:"places"`
	Visits  []Visit  `json:"visits" yaml:"visits"`
}
