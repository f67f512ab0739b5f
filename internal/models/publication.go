package models

import "time"

// PublicationType enumerates the kinds of referenced publications.
type PublicationType string

const (
	PublicationBook       PublicationType = "BOOK"
	PublicationCatalog    PublicationType = "CATALOG"
	PublicationJournal    PublicationType = "JOURNAL"
	PublicationWebsite    PublicationType = "WEBSITE"
	PublicationNewsletter PublicationType = "NEWSLETTER"
)

// Publication is a book, catalog, or other work that lists postmarks.
type Publication struct {
	ID              string          `db:"id" json:"id"`
	Title           string          `db:"title" json:"title"`
	Author          string          `db:"author" json:"author"`
	Publisher       string          `db:"publisher" json:"publisher"`
	PublicationDate time.Time       `db:"publication_date" json:"publication_date"`
	ISBN            string          `db:"isbn" json:"isbn,omitempty"`
	Edition         string          `db:"edition" json:"edition,omitempty"`
	PublicationType PublicationType `db:"publication_type" json:"publication_type"`
	AuditFields
}

// PublicationFilter captures search options for publication listings.
type PublicationFilter struct {
	Search          string
	PublicationType string
	Author          string
	Publisher       string
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}

// PublicationReference ties a postmark to its entry in a publication.
type PublicationReference struct {
	ID                string    `db:"id" json:"id"`
	PostmarkID        string    `db:"postmark_id" json:"postmark_id"`
	PublicationID     string    `db:"publication_id" json:"publication_id"`
	PublishedID       string    `db:"published_id" json:"published_id"`
	ReferenceLocation string    `db:"reference_location" json:"reference_location"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	CreatedBy         string    `db:"created_by" json:"created_by"`
}
