package models

import "time"

// RateLocation enumerates where the rate marking sits on the postmark.
type RateLocation string

const (
	RateTop    RateLocation = "TOP"
	RateBottom RateLocation = "BOTTOM"
	RateLeft   RateLocation = "LEFT"
	RateRight  RateLocation = "RIGHT"
	RateCenter RateLocation = "CENTER"
	RateNone   RateLocation = "NONE"
)

// Condition grades the physical state of a postmark or cover.
type Condition string

const (
	ConditionVeryFine Condition = "VERY_FINE"
	ConditionFine     Condition = "FINE"
	ConditionVeryGood Condition = "VERY_GOOD"
	ConditionPoor     Condition = "POOR"
)

// Postmark is the primary catalog record.
type Postmark struct {
	ID                   string       `db:"id" json:"id"`
	PostmarkKey          string       `db:"postmark_key" json:"postmark_key"`
	LocationID           string       `db:"location_id" json:"location_id"`
	ShapeID              string       `db:"shape_id" json:"shape_id"`
	LetteringStyleID     string       `db:"lettering_style_id" json:"lettering_style_id"`
	FramingStyleID       string       `db:"framing_style_id" json:"framing_style_id"`
	DateFormatID         string       `db:"date_format_id" json:"date_format_id"`
	RateLocation         RateLocation `db:"rate_location" json:"rate_location"`
	RateValue            string       `db:"rate_value" json:"rate_value"`
	Condition            *Condition   `db:"condition" json:"condition,omitempty"`
	IsManuscript         bool         `db:"is_manuscript" json:"is_manuscript"`
	OtherCharacteristics string       `db:"other_characteristics" json:"other_characteristics,omitempty"`
	AuditFields
}

// PostmarkDetail is the nested read representation returned by GET /postmarks/:id.
type PostmarkDetail struct {
	Postmark
	Location   *GeographicLocation    `json:"location,omitempty"`
	Colors     []PostmarkColor        `json:"colors"`
	DatesSeen  []PostmarkDateRange    `json:"dates_seen"`
	Sizes      []PostmarkSize         `json:"sizes"`
	Valuations []PostmarkValuation    `json:"valuations"`
	Images     []PostmarkImage        `json:"images"`
	References []PublicationReference `json:"publication_references"`
}

// PostmarkColor links a postmark to a color from the lookup table.
type PostmarkColor struct {
	ID         string    `db:"id" json:"id"`
	PostmarkID string    `db:"postmark_id" json:"postmark_id"`
	ColorID    string    `db:"color_id" json:"color_id"`
	ColorName  string    `db:"color_name" json:"color_name,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
}

// PostmarkDateRange records a period during which the postmark was observed.
type PostmarkDateRange struct {
	ID           string    `db:"id" json:"id"`
	PostmarkID   string    `db:"postmark_id" json:"postmark_id"`
	EarliestSeen time.Time `db:"earliest_seen" json:"earliest_seen"`
	LatestSeen   time.Time `db:"latest_seen" json:"latest_seen"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
}

// PostmarkSize is a measured impression size in millimeters.
type PostmarkSize struct {
	ID         string    `db:"id" json:"id"`
	PostmarkID string    `db:"postmark_id" json:"postmark_id"`
	Width      float64   `db:"width" json:"width"`
	Height     float64   `db:"height" json:"height"`
	SizeNotes  string    `db:"size_notes" json:"size_notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
}

// PostmarkValuation is a dated estimate of a postmark's worth.
type PostmarkValuation struct {
	ID             string    `db:"id" json:"id"`
	PostmarkID     string    `db:"postmark_id" json:"postmark_id"`
	ValuedByUserID string    `db:"valued_by_user_id" json:"valued_by_user_id"`
	EstimatedValue float64   `db:"estimated_value" json:"estimated_value"`
	ValuationDate  time.Time `db:"valuation_date" json:"valuation_date"`
	AuditFields
}

// PostmarkFilter captures the rich filter surface over the catalog.
type PostmarkFilter struct {
	Search          string
	Key             string
	LocationID      string
	LocationName    string
	LocationType    string
	State           string
	ShapeID         string
	LetteringID     string
	FramingID       string
	DateFormatID    string
	RateLocation    string
	RateValue       string
	Condition       string
	IsManuscript    *bool
	EarliestYearMin *int
	EarliestYearMax *int
	LatestYearMin   *int
	LatestYearMax   *int
	Color           string
	ValueMin        *float64
	ValueMax        *float64
	HasImages       *bool
	PublicationID   string
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
