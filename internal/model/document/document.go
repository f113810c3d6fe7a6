package document

import "errors"

// ErrNotFound is returned when no document matches the requested key.
var ErrNotFound = errors.New("document not found")

// Document pairs a candidate resume with the job description a session is
// scoped to. Rows are authored by an external system; this service only reads
// them.
type Document struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	Name   string `gorm:"size:256;not null;uniqueIndex" json:"name"`
	Resume string `gorm:"type:text" json:"resume"`
	JD     string `gorm:"type:text" json:"jd"`
}
