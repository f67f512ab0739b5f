package models

// ReferenceKind identifies one of the flat lookup tables that describe
// postmark physical attributes.
type ReferenceKind string

const (
	KindShape      ReferenceKind = "shape"
	KindLettering  ReferenceKind = "lettering_style"
	KindFraming    ReferenceKind = "framing_style"
	KindDateFormat ReferenceKind = "date_format"
)

// ReferenceKinds lists every kind in registration order.
var ReferenceKinds = []ReferenceKind{KindShape, KindLettering, KindFraming, KindDateFormat}

// ReferenceItem is a row in one of the lookup tables (shapes, lettering
// styles, framing styles, date formats). The kind determines the table.
type ReferenceItem struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	AuditFields
}

// Color is a lookup row with an associated hex value.
type Color struct {
	ID        string `db:"id" json:"id"`
	ColorName string `db:"color_name" json:"color_name"`
	HexValue  string `db:"hex_value" json:"hex_value"`
	AuditFields
}

// ReferenceFilter captures search options for lookup listings.
type ReferenceFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}
