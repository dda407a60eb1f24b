package models

// CarelessPerson is one row of the careless people ranking.
type CarelessPerson struct {
	SickName string `json:"sick_name"`
	NbPlaces int    `json:"nb_places"`
}

// SiteCount is the place type with the most visits by sick people after
// their confirmation.
type SiteCount struct {
	PlaceType      string `json:"place_type"`
	NbOfSickVisits int    `json:"nb_of_sick_visits"`
}

// GraphStats summarizes a snapshot.
type GraphStats struct {
	Persons int `json:"persons"`
	Sick    int `json:"sick"`
	Healthy int `json:"healthy"`
	Places  int `json:"places"`
	Visits  int `json:"visits"`
}

// Report bundles the read-only analyses of one snapshot. TopSickSite is nil
// when no visit qualifies.
type Report struct {
	Stats                GraphStats          `json:"stats"`
	PossibleSpreaders    []string            `json:"possible_spreaders"`
	PossibleSpreadCounts map[string]int      `json:"possible_spread_counts"`
	CarelessPeople       []CarelessPerson    `json:"careless_people"`
	SociallyCareful      []string            `json:"socially_careful"`
	PeopleToInform       map[string][]string `json:"people_to_inform"`
	TopSickSite          *SiteCount          `json:"top_sick_site,omitempty"`
}

// SearchResult holds the nodes matched by a full-text search.
type SearchResult struct {
	Persons []Person `json:"persons"`
	Places  []Place  `json:"places"`
}
