package models

import "time"

// LocationType enumerates the kinds of physical places in the gazetteer.
type LocationType string

const (
	LocationTown       LocationType = "TOWN"
	LocationCity       LocationType = "CITY"
	LocationVillage    LocationType = "VILLAGE"
	LocationPostOffice LocationType = "POST_OFFICE"
	LocationSettlement LocationType = "SETTLEMENT"
)

// UnitType enumerates administrative unit kinds.
type UnitType string

const (
	UnitCountry    UnitType = "COUNTRY"
	UnitState      UnitType = "STATE"
	UnitProvince   UnitType = "PROVINCE"
	UnitTerritory  UnitType = "TERRITORY"
	UnitPrefecture UnitType = "PREFECTURE"
	UnitCounty     UnitType = "COUNTY"
)

// ChangeReason enumerates the causes of an administrative unit revision.
type ChangeReason string

const (
	ChangeSplit        ChangeReason = "SPLIT"
	ChangeMerged       ChangeReason = "MERGED"
	ChangeRenamed      ChangeReason = "RENAMED"
	ChangeIndependence ChangeReason = "INDEPENDENCE"
	ChangeAnnexed      ChangeReason = "ANNEXED"
	ChangeReorganized  ChangeReason = "REORGANIZED"
)

// AuditFields carries actor and timestamp stamps shared by catalog entities.
type AuditFields struct {
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	ModifiedBy string    `db:"modified_by" json:"modified_by"`
}

// GeographicLocation is an immutable physical place (town, city, post office).
type GeographicLocation struct {
	ID           string       `db:"id" json:"id"`
	LocationName string       `db:"location_name" json:"location_name"`
	LocationType LocationType `db:"location_type" json:"location_type"`
	Latitude     *float64     `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64     `db:"longitude" json:"longitude,omitempty"`
	AuditFields
}

// LocationFilter captures the query surface for listing locations.
type LocationFilter struct {
	Search         string
	LocationType   string
	CurrentState   string
	LatitudeMin    *float64
	LatitudeMax    *float64
	LongitudeMin   *float64
	LongitudeMax   *float64
	HasCoordinates *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// AdministrativeUnit is a political entity forming a tree via ParentID.
type AdministrativeUnit struct {
	ID             string   `db:"id" json:"id"`
	ParentID       *string  `db:"parent_id" json:"parent_id,omitempty"`
	UnitName       string   `db:"unit_name" json:"unit_name"`
	Abbreviation   string   `db:"abbreviation" json:"abbreviation"`
	UnitType       UnitType `db:"unit_type" json:"unit_type"`
	// HierarchyLevel starts at 1 for countries and grows with depth.
	HierarchyLevel int  `db:"hierarchy_level" json:"hierarchy_level"`
	IsActive       bool `db:"is_active" json:"is_active"`
	AuditFields
}

// UnitFilter captures the query surface for listing administrative units.
type UnitFilter struct {
	Search       string
	UnitType     string
	Abbreviation string
	Level        *int
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// GeographicAffiliation is a time-bounded governance edge between a location
// and an administrative unit. A nil EffectiveTo means the edge is still open.
type GeographicAffiliation struct {
	ID            string     `db:"id" json:"id"`
	LocationID    string     `db:"location_id" json:"location_id"`
	UnitID        string     `db:"unit_id" json:"unit_id"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	Source        string     `db:"source" json:"source"`
	AuditFields
}

// Open reports whether the affiliation is still in force.
func (a *GeographicAffiliation) Open() bool {
	return a.EffectiveTo == nil
}

// AffiliationFilter captures the query surface for listing affiliations.
type AffiliationFilter struct {
	LocationID string
	UnitID     string
	OpenOnly   bool
	Page       int
	PageSize   int
}

// UnitNameHistory is an append-only rename snapshot for an administrative unit.
type UnitNameHistory struct {
	ID             string     `db:"id" json:"id"`
	UnitID         string     `db:"unit_id" json:"unit_id"`
	HistoricalName string     `db:"historical_name" json:"historical_name"`
	HistoricalAbbr string     `db:"historical_abbr" json:"historical_abbr"`
	EffectiveFrom  time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo    *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
}

// UnitHistory is an append-only structural snapshot of an administrative unit.
type UnitHistory struct {
	ID             string       `db:"id" json:"id"`
	UnitID         string       `db:"unit_id" json:"unit_id"`
	ParentID       *string      `db:"parent_id" json:"parent_id,omitempty"`
	UnitName       string       `db:"unit_name" json:"unit_name"`
	Abbreviation   string       `db:"abbreviation" json:"abbreviation"`
	UnitType       UnitType     `db:"unit_type" json:"unit_type"`
	HierarchyLevel int          `db:"hierarchy_level" json:"hierarchy_level"`
	IsActive       bool         `db:"is_active" json:"is_active"`
	EffectiveFrom  time.Time    `db:"effective_from" json:"effective_from"`
	EffectiveTo    *time.Time   `db:"effective_to" json:"effective_to,omitempty"`
	ChangeReason   ChangeReason `db:"change_reason" json:"change_reason"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	CreatedBy      string       `db:"created_by" json:"created_by"`
}
