package assets

import (
	"errors"
	"time"
)

var (
	ErrTrailerNotFound = errors.New("trailer not found")
	ErrDuplicateNumber = errors.New("trailer number already exists")
)

// Trailer is a fleet asset that can be inspected and repaired.
type Trailer struct {
	ID        string    `json:"id" db:"id"`
	Number    string    `json:"number" db:"number"`
	Make      string    `json:"make" db:"make"`
	Model     string    `json:"model" db:"model"`
	Year      int       `json:"year" db:"year"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateTrailerRequest registers a new trailer.
type CreateTrailerRequest struct {
	Number string `json:"number" binding:"required"`
	Make   string `json:"make"`
	Model  string `json:"model"`
	Year   int    `json:"year"`
}

// SeedTrailers is the fleet loaded in local mode.
func SeedTrailers() []Trailer {
	return []Trailer{
		{ID: "1", Number: "TRL-001", Make: "Utility", Model: "3000R", Year: 2020},
		{ID: "2", Number: "TRL-002", Make: "Great Dane", Model: "Everest", Year: 2021},
		{ID: "3", Number: "TRL-003", Make: "Wabash", Model: "DuraPlate", Year: 2019},
		{ID: "4", Number: "TRL-004", Make: "Utility", Model: "4000D-X", Year: 2022},
		{ID: "5", Number: "TRL-005", Make: "Great Dane", Model: "Champion", Year: 2021},
	}
}
