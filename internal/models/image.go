package models

// ImageView enumerates how an image frames its subject.
type ImageView string

const (
	ViewFull       ImageView = "FULL"
	ViewDetail     ImageView = "DETAIL"
	ViewComparison ImageView = "COMPARISON"
	ViewFront      ImageView = "FRONT"
	ViewBack       ImageView = "BACK"
	ViewInterior   ImageView = "INTERIOR"
)

// ImageStatus tracks the moderation state of a submitted postmark image.
type ImageStatus string

const (
	ImagePending  ImageStatus = "PENDING"
	ImageApproved ImageStatus = "APPROVED"
	ImageRejected ImageStatus = "REJECTED"
)

// ImageMeta holds the storage metadata shared by postmark and postcover
// images. The file bytes live in object storage; only the returned metadata
// is persisted here.
type ImageMeta struct {
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	StorageFilename  string    `db:"storage_filename" json:"storage_filename"`
	FileChecksum     string    `db:"file_checksum" json:"file_checksum"`
	MimeType         string    `db:"mime_type" json:"mime_type"`
	ImageWidth       int       `db:"image_width" json:"image_width"`
	ImageHeight      int       `db:"image_height" json:"image_height"`
	FileSizeBytes    int64     `db:"file_size_bytes" json:"file_size_bytes"`
	ImageView        ImageView `db:"image_view" json:"image_view"`
	Description      string    `db:"description" json:"description,omitempty"`
	DisplayOrder     int       `db:"display_order" json:"display_order"`
}

// PostmarkImage is a moderated image attached to a catalog postmark.
type PostmarkImage struct {
	ID         string `db:"id" json:"id"`
	PostmarkID string `db:"postmark_id" json:"postmark_id"`
	ImageMeta
	Status         ImageStatus `db:"status" json:"status"`
	SubmitterName  string      `db:"submitter_name" json:"submitter_name,omitempty"`
	SubmitterEmail string      `db:"submitter_email" json:"submitter_email,omitempty"`
	AuditFields
}

// PostcoverImage is an image of a physical cover in a collection.
type PostcoverImage struct {
	ID          string `db:"id" json:"id"`
	PostcoverID string `db:"postcover_id" json:"postcover_id"`
	ImageMeta
	UploadedByUserID string `db:"uploaded_by_user_id" json:"uploaded_by_user_id"`
	AuditFields
}
