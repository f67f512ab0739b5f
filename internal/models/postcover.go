package models

import "time"

// PlacementLocation enumerates where a postmark sits on a physical cover.
type PlacementLocation string

const (
	PlacementFront          PlacementLocation = "FRONT"
	PlacementBack           PlacementLocation = "BACK"
	PlacementFrontUpperRt   PlacementLocation = "FRONT_UPPER_RIGHT"
	PlacementFrontUpperLt   PlacementLocation = "FRONT_UPPER_LEFT"
	PlacementBackUpperRight PlacementLocation = "BACK_UPPER_RIGHT"
	PlacementBackUpperLeft  PlacementLocation = "BACK_UPPER_LEFT"
	PlacementBackLowerLeft  PlacementLocation = "BACK_LOWER_LEFT"
	PlacementBackLowerRight PlacementLocation = "BACK_LOWER_RIGHT"
)

// Postcover is a physical cover owned by exactly one collector.
type Postcover struct {
	ID           string     `db:"id" json:"id"`
	OwnerUserID  string     `db:"owner_user_id" json:"owner_user_id"`
	PostcoverKey string     `db:"postcover_key" json:"postcover_key"`
	Description  string     `db:"description" json:"description,omitempty"`
	Condition    *Condition `db:"condition" json:"condition,omitempty"`
	AuditFields
}

// PostcoverDetail is the nested read representation of a cover.
type PostcoverDetail struct {
	Postcover
	Placements []PostcoverPlacement `json:"postmarks"`
	Images     []PostcoverImage     `json:"images"`
}

// PostcoverPlacement positions a catalog postmark on a cover.
type PostcoverPlacement struct {
	ID            string            `db:"id" json:"id"`
	PostcoverID   string            `db:"postcover_id" json:"postcover_id"`
	PostmarkID    string            `db:"postmark_id" json:"postmark_id"`
	PositionOrder int               `db:"position_order" json:"position_order"`
	Location      PlacementLocation `db:"location" json:"location"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	CreatedBy     string            `db:"created_by" json:"created_by"`
}

// PostcoverFilter captures the query surface for listing covers.
type PostcoverFilter struct {
	OwnerUserID string
	Condition   string
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
