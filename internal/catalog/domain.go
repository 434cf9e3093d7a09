// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Book is a catalog title with a counter of copies on the shelf.
type Book struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	Title           string        `json:"title" db:"title"`
	AuthorID        uuid.NullUUID `json:"author_id" db:"author_id"`
	PublisherID     uuid.NullUUID `json:"publisher_id" db:"publisher_id"`
	GenreID         uuid.NullUUID `json:"genre_id" db:"genre_id"`
	ISBN            string        `json:"isbn" db:"isbn"`
	PublicationYear int           `json:"publication_year,omitempty" db:"publication_year"`
	AvailableCopies int           `json:"available_copies" db:"available_copies"`
	Summary         string        `json:"summary,omitempty" db:"summary"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// NewBook carries the fields supplied when a title is catalogued.
type NewBook struct {
	Title           string        `json:"title"`
	AuthorID        uuid.NullUUID `json:"author_id"`
	PublisherID     uuid.NullUUID `json:"publisher_id"`
	GenreID         uuid.NullUUID `json:"genre_id"`
	ISBN            string        `json:"isbn"`
	PublicationYear int           `json:"publication_year"`
	AvailableCopies int           `json:"available_copies"`
	Summary         string        `json:"summary"`
}
